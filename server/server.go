// server/server.go
package server

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wdlord/discord-pokebot/broadcast"
	"github.com/wdlord/discord-pokebot/encounter"
	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/monitor"
	"github.com/wdlord/discord-pokebot/network"
	"github.com/wdlord/discord-pokebot/services"
	"github.com/wdlord/discord-pokebot/session"
	"github.com/wdlord/discord-pokebot/species"
)

// Services 网关依赖的业务服务
type Services struct {
	Ledger     *services.Ledger
	Favorites  *services.Favorites
	Roster     *services.Roster
	Evolution  *services.Evolution
	Trades     *services.Trades
	Rolls      *services.Rolls
	Encounters *encounter.Manager
	Directory  species.Directory
}

type Options struct {
	Addr      string
	Heartbeat time.Duration
	// Metrics may be nil.
	Metrics *monitor.Metrics
	Seed    int64
}

type GameServer struct {
	addr           string
	heartbeat      time.Duration
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	svc            Services
	metrics        *monitor.Metrics
	handlers       map[uint16]handlerFunc

	rngMutex sync.Mutex
	rng      *rand.Rand

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewGameServer(opts Options, sessions *session.Manager, broadcaster broadcast.Broadcaster, svc Services) *GameServer {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &GameServer{
		addr:           opts.Addr,
		heartbeat:      opts.Heartbeat,
		sessionManager: sessions,
		broadcaster:    broadcaster,
		svc:            svc,
		metrics:        opts.Metrics,
		rng:            rand.New(rand.NewSource(seed)),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.handlers = s.routes()
	return s
}

// Handler exposes the websocket endpoint at /ws.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Run serves until ctx is cancelled, then closes every session.
func (s *GameServer) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		s.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Infow("game server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		for _, sess := range s.sessionManager.All() {
			_ = sess.Close()
		}
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infow("failed to upgrade connection", "error", err)
		return
	}
	s.handleConnection(r.Context(), conn)
}

func (s *GameServer) handleConnection(ctx context.Context, conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.metrics != nil {
		s.metrics.IncOnlineSessions()
	}

	logger.Log.Infow("new connection", "remote", wsConn.RemoteAddr().String(), "session_id", sess.GetID())

	defer func() {
		logger.Log.Infow("connection closed", "remote", wsConn.RemoteAddr().String(), "session_id", sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		if s.metrics != nil {
			s.metrics.DecOnlineSessions()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}
		packet, err := wsConn.ReadPacket()
		if err != nil {
			return
		}
		s.handlePacket(ctx, sess, packet)
	}
}

func (s *GameServer) handlePacket(ctx context.Context, sess *session.Session, packet *network.Packet) {
	start := time.Now()
	sess.Touch()
	if s.metrics != nil {
		s.metrics.IncMessagesReceived(packet.MsgID)
		defer func() { s.metrics.ObserveMessageLatency(time.Since(start)) }()
	}

	h, ok := s.handlers[packet.MsgID]
	if !ok {
		logger.Log.Infow("unknown message type", "msg_id", packet.MsgID, "session_id", sess.GetID())
		s.replyError(sess, packet.MsgID, errUnknownMessage)
		return
	}

	resp, err := h(ctx, sess, packet.Data)
	if err != nil {
		s.replyError(sess, packet.MsgID, err)
		return
	}
	s.reply(sess, packet.MsgID, resp)
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, v any) {
	data, err := network.Encode(v)
	if err != nil {
		logger.Log.Errorw("encode reply failed", "msg_id", msgID, "error", err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnw("send reply failed", "session_id", sess.GetID(), "msg_id", msgID, "error", err)
	}
}

func (s *GameServer) replyError(sess *session.Session, msgID uint16, err error) {
	code := errorCode(err)
	if code == "internal" {
		logger.Log.Errorw("request failed", "session_id", sess.GetID(), "msg_id", msgID, "error", err)
	}
	s.reply(sess, network.MsgTypeError, network.ErrorResponse{
		RequestID: msgID,
		Code:      code,
		Message:   err.Error(),
	})
}

// push 推送消息给指定玩家的所有会话
func (s *GameServer) push(msgID uint16, v any, players ...models.PlayerID) {
	data, err := network.Encode(v)
	if err != nil {
		logger.Log.Errorw("encode push failed", "msg_id", msgID, "error", err)
		return
	}
	_ = s.broadcaster.BroadcastToUsers(players, msgID, data)
}

// newRand derives a per-request source so ledger writes never run under rngMutex.
func (s *GameServer) newRand() *rand.Rand {
	s.rngMutex.Lock()
	defer s.rngMutex.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}
