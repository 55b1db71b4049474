// broadcast/broadcast.go
package broadcast

import (
	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []models.PlayerID, msgID uint16, data []byte) error
}

// SessionBroadcaster 基于会话的广播器
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

// BroadcastToAll sends to every identified session.
func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if _, ok := s.User(); !ok {
			continue
		}
		b.send(s, msgID, data)
	}
	return nil
}

func (b *SessionBroadcaster) BroadcastToUsers(userIDs []models.PlayerID, msgID uint16, data []byte) error {
	for _, userID := range userIDs {
		for _, s := range b.sessionManager.GetByUserID(userID) {
			b.send(s, msgID, data)
		}
	}
	return nil
}

// send 发送失败只记录日志，连接由读循环负责清理
func (b *SessionBroadcaster) send(s *session.Session, msgID uint16, data []byte) {
	if err := s.Send(msgID, data); err != nil {
		logger.Log.Warnw("broadcast send failed", "session_id", s.ID, "msg_id", msgID, "error", err)
	}
}
