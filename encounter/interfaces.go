package encounter

// Broadcaster pushes a packet to every connected player.
// Defined here to break the import cycle between encounter and broadcast.
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
}
