package session

import (
	"net"
	"testing"
	"time"

	"github.com/wdlord/discord-pokebot/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_GetByUserID(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Identify(100)

	sess2 := NewSession("session2", &MockConnection{})
	sess2.Identify(200)

	sess3 := NewSession("session3", &MockConnection{})
	sess3.Identify(100)

	anonymous := NewSession("session4", &MockConnection{})

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)
	manager.Add(anonymous)

	if got := len(manager.GetByUserID(100)); got != 2 {
		t.Errorf("Expected 2 sessions for UserID 100, got %d", got)
	}
	if got := len(manager.GetByUserID(200)); got != 1 {
		t.Errorf("Expected 1 session for UserID 200, got %d", got)
	}
	if got := len(manager.GetByUserID(0)); got != 0 {
		t.Errorf("Expected unidentified sessions to be excluded, got %d", got)
	}
	if got := len(manager.All()); got != 4 {
		t.Errorf("Expected 4 sessions in total, got %d", got)
	}
}

func TestSession_IdentifyAndSend(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("test_session", conn)

	if _, ok := sess.User(); ok {
		t.Error("Expected new session to be unidentified")
	}
	sess.Identify(42)
	if id, ok := sess.User(); !ok || id != 42 {
		t.Errorf("Expected user 42, got %d (%v)", id, ok)
	}

	before := sess.LastActive
	time.Sleep(time.Millisecond)
	if err := sess.Send(network.MsgTypeRoll, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(conn.sent) != 1 || conn.sent[0] != network.MsgTypeRoll {
		t.Errorf("Expected one roll packet sent, got %v", conn.sent)
	}
	if !sess.LastActive.After(before) {
		t.Error("Expected Send to refresh LastActive")
	}
}
