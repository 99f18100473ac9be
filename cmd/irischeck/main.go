// Command irischeck probes the Iris HTTP and WebSocket endpoints the bot
// talks to and prints what it sees for a short window.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-social/internal/irisfast"
	"github.com/park285/cheese-social/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	window := flag.Duration("window", 10*time.Second, "how long to observe WS traffic")
	room := flag.String("room", "", "send a test message to this room over HTTP")
	flag.Parse()

	_ = obslog.Init(obslog.Options{Level: "debug", Format: "console", ToConsole: true})
	logger := obslog.L()

	baseURL := strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	if baseURL == "" {
		logger.Fatal("IRIS_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		for env, h := range map[string]string{"X_USER_ID": "X-User-Id", "X_USER_EMAIL": "X-User-Email", "X_SESSION_ID": "X-Session-Id"} {
			if v := strings.TrimSpace(os.Getenv(env)); v != "" {
				m[h] = v
			}
		}
		return m
	}

	client := irisfast.NewClient(baseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		logger.Warn("iris_config_error", zap.Error(err))
	} else {
		logger.Info("iris_config_ok",
			zap.Int("port", cfg.Port),
			zap.Int("polling", cfg.PollingSpeed),
			zap.Int("rate", cfg.MessageRate),
			zap.String("endpoint", cfg.WebserverEndpoint),
		)
	}
	if *room != "" {
		if err := client.SendMessage(ctx, *room, "irischeck ping"); err != nil {
			logger.Warn("iris_reply_error", zap.String("room", *room), zap.Error(err))
		}
	}

	if wsURL == "" {
		logger.Info("IRIS_WS_URL not set; skipping WS check")
		return
	}

	ws := irisfast.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		from := "?"
		if msg.Sender != nil {
			from = *msg.Sender
		}
		logger.Info("ws_message", zap.String("room", msg.Room), zap.String("from", from), zap.String("text", msg.Msg))
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		logger.Warn("ws_connect_error", zap.Error(err))
		return
	}

	<-time.After(*window)
	_ = ws.Close(context.Background())
}
