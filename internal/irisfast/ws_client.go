package irisfast

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// Inbound delivers chat messages pushed by Iris. Callbacks run on the
// connection's read loop and must not block.
type Inbound interface {
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
}
