package irisfast

import (
    "context"
    "net/http"
    "strings"
    "sync"
    "time"

    "github.com/park285/cheese-social/internal/obslog"
    "go.uber.org/zap"
    "nhooyr.io/websocket"
    "nhooyr.io/websocket/wsjson"
)

type callbackEntry struct {
    id       int
    callback MessageCallback
}

type stateCallbackEntry struct {
    id       int
    callback StateCallback
}

// WebSocket receives Iris events and reconnects with backoff.
type WebSocket struct {
    wsURL string

    conn   *websocket.Conn
    state  WebSocketState
    stateM sync.RWMutex

    msgCbs   []callbackEntry
    stateCbs []stateCallbackEntry
    nextCbID int
    cbM      sync.RWMutex

    maxReconnectAttempts int
    reconnectDelay       time.Duration
    pingInterval         time.Duration

    stopCh   chan struct{}
    stopOnce sync.Once
    wg       sync.WaitGroup

    rootCtx    context.Context
    rootCancel context.CancelFunc

    headerProvider HeaderProvider
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *WebSocket {
    return &WebSocket{
        wsURL:                wsURL,
        state:                WSStateDisconnected,
        maxReconnectAttempts: maxReconnectAttempts,
        reconnectDelay:       reconnectDelay,
        pingInterval:         30 * time.Second,
        stopCh:               make(chan struct{}),
    }
}

// State returns the current connection state.
func (ws *WebSocket) State() WebSocketState {
    ws.stateM.RLock()
    defer ws.stateM.RUnlock()
    return ws.state
}

func (ws *WebSocket) activeConn() *websocket.Conn {
    ws.stateM.RLock()
    defer ws.stateM.RUnlock()
    if ws.state != WSStateConnected {
        return nil
    }
    return ws.conn
}

func (ws *WebSocket) Connect(ctx context.Context) error {
    if st := ws.State(); st == WSStateConnected || st == WSStateConnecting {
        return nil
    }
    ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
    ws.setState(WSStateConnecting)

    if err := ws.dial(ctx); err != nil {
        ws.setState(WSStateFailed)
        ws.scheduleReconnect()
        return err
    }
    return nil
}

// dial opens a connection and starts the reader and ping loops.
func (ws *WebSocket) dial(ctx context.Context) error {
    dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
        CompressionMode: websocket.CompressionNoContextTakeover,
        HTTPHeader:      ws.buildHeaders(),
    })
    if err != nil {
        return err
    }
    ws.stateM.Lock()
    ws.conn = conn
    ws.stateM.Unlock()
    ws.setState(WSStateConnected)

    ws.wg.Add(2)
    go ws.listen(conn)
    go ws.pingLoop(conn)
    return nil
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
    defer ws.wg.Done()
    for {
        var msg Message
        if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
            if ws.isStopping() {
                return
            }
            obslog.L().Warn("iris_ws_read_error", zap.Error(err))
            ws.dropAndReconnect(conn, "reconnect")
            return
        }

        ws.cbM.RLock()
        callbacks := make([]callbackEntry, len(ws.msgCbs))
        copy(callbacks, ws.msgCbs)
        ws.cbM.RUnlock()
        for _, entry := range callbacks {
            if entry.callback != nil {
                entry.callback(&msg)
            }
        }
    }
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
    defer ws.wg.Done()
    t := time.NewTicker(ws.pingInterval)
    defer t.Stop()
    failures := 0
    for {
        select {
        case <-ws.stopCh:
            return
        case <-ws.rootCtx.Done():
            return
        case <-t.C:
            ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
            err := conn.Ping(ctx)
            cancel()
            if err == nil {
                failures = 0
                continue
            }
            failures++
            if failures >= 2 {
                if ws.isStopping() {
                    return
                }
                obslog.L().Warn("iris_ws_ping_failed", zap.Error(err))
                ws.dropAndReconnect(conn, "ping failure")
                return
            }
        }
    }
}

// dropAndReconnect closes conn if it is still current and schedules a
// reconnect. The reader and the ping loop may both observe the same failure.
func (ws *WebSocket) dropAndReconnect(conn *websocket.Conn, reason string) {
    ws.stateM.Lock()
    if ws.conn != conn {
        ws.stateM.Unlock()
        return
    }
    ws.conn = nil
    ws.stateM.Unlock()
    _ = conn.Close(websocket.StatusGoingAway, reason)
    ws.setState(WSStateDisconnected)
    ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
    if ws.maxReconnectAttempts <= 0 {
        return
    }
    ws.setState(WSStateReconnecting)

    go func() {
        for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
            delay := ws.reconnectDelay
            if delay <= 0 {
                delay = backoffDuration(attempt)
            } else {
                delay *= time.Duration(attempt)
            }
            select {
            case <-ws.stopCh:
                return
            case <-time.After(delay):
            }
            if err := ws.dial(ws.rootCtx); err != nil {
                obslog.L().Warn("iris_ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
                continue
            }
            obslog.L().Info("iris_ws_reconnected", zap.Int("attempt", attempt))
            return
        }
        ws.setState(WSStateFailed)
    }()
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    ws.nextCbID++
    ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextCbID, callback: cb})
    return ws.nextCbID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    for i, cb := range ws.msgCbs {
        if cb.id == id {
            ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
            break
        }
    }
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    ws.nextCbID++
    ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
    return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
    ws.cbM.Lock()
    defer ws.cbM.Unlock()
    for i, cb := range ws.stateCbs {
        if cb.id == id {
            ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
            break
        }
    }
}

func (ws *WebSocket) setState(state WebSocketState) {
    ws.stateM.Lock()
    ws.state = state
    ws.stateM.Unlock()

    ws.cbM.RLock()
    callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
    copy(callbacks, ws.stateCbs)
    ws.cbM.RUnlock()
    for _, entry := range callbacks {
        if entry.callback != nil {
            entry.callback(state)
        }
    }
}

func (ws *WebSocket) Close(ctx context.Context) error {
    ws.stopOnce.Do(func() { close(ws.stopCh) })
    ws.stateM.Lock()
    conn := ws.conn
    ws.conn = nil
    ws.stateM.Unlock()
    if conn != nil {
        _ = conn.Close(websocket.StatusNormalClosure, "close")
    }
    if ws.rootCancel != nil {
        ws.rootCancel()
    }

    done := make(chan struct{})
    go func() {
        ws.wg.Wait()
        close(done)
    }()

    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-done:
        ws.setState(WSStateDisconnected)
        return nil
    }
}

func (ws *WebSocket) isStopping() bool {
    select {
    case <-ws.stopCh:
        return true
    default:
        return false
    }
}

// SetHeaderProvider injects headers into the WS handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
    ws.headerProvider = h
}

func (ws *WebSocket) buildHeaders() http.Header {
    hdr := http.Header{}
    if ws.headerProvider == nil {
        return hdr
    }
    for k, v := range ws.headerProvider() {
        if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
            continue
        }
        hdr.Set(k, v)
    }
    return hdr
}

var _ Inbound = (*WebSocket)(nil)
