package irisfast

import (
    "context"
    "errors"
    "sync"
    "time"

    "go.uber.org/zap"
    "nhooyr.io/websocket/wsjson"
)

// Egress sends text replies over HTTP or WebSocket.
type Egress interface {
    SendText(ctx context.Context, room, message string) error
}

type transportMode string

const (
    transportHTTP transportMode = "http"
    transportWS   transportMode = "ws"
    transportAuto transportMode = "auto"
)

// NewEgress picks the transport for mode. In auto mode WS is used while
// connected and a failed WS write falls back to HTTP once.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
    if logger == nil {
        logger = zap.NewNop()
    }
    switch transportMode(mode) {
    case transportWS:
        return &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
    case transportAuto:
        return &autoEgress{ws: &wsEgress{ws: ws, dryrun: dryrun, logger: logger}, http: &httpEgress{c: c}, logger: logger}
    default:
        return &httpEgress{c: c}
    }
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
    if h == nil || h.c == nil { return errors.New("http egress not available") }
    return h.c.SendMessage(ctx, room, message)
}

// wsEgress writes ReplyRequest frames. Command handlers run concurrently
// and wsjson.Write is not safe for concurrent use, hence mu.
type wsEgress struct {
    ws     *WebSocket
    dryrun bool
    logger *zap.Logger
    mu     sync.Mutex
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
    if w == nil || w.ws == nil { return errors.New("ws egress not available") }
    if w.dryrun {
        w.logger.Info("ws_egress_dryrun", zap.String("type", "text"), zap.String("room", room))
        return nil
    }
    conn := w.ws.activeConn()
    if conn == nil {
        return errors.New("ws not connected")
    }
    dctx := ctx
    if _, ok := ctx.Deadline(); !ok {
        var cancel context.CancelFunc
        dctx, cancel = context.WithTimeout(ctx, 5*time.Second)
        defer cancel()
    }
    w.mu.Lock()
    defer w.mu.Unlock()
    return wsjson.Write(dctx, conn, &ReplyRequest{Type: "text", Room: room, Data: message})
}

type autoEgress struct {
    ws     *wsEgress
    http   *httpEgress
    logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
    if a.ws != nil && a.ws.ws != nil && a.ws.ws.State() == WSStateConnected {
        err := a.ws.SendText(ctx, room, message)
        if err == nil { return nil }
        a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room), zap.Error(err))
    }
    return a.http.SendText(ctx, room, message)
}
