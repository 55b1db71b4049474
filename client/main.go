// client/main.go
package main

import (
	"bufio"
	"encoding/json"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/models"
	"github.com/wdlord/discord-pokebot/network"
)

const usage = `commands:
  roll | chat | fav
  dex [user_id]
  party [@user_id]
  catch <encounter_id>
  evolve <species> [target]
  fav <species> [shiny]
  party <name> [#shiny_name ...]
  trade <user_id> <give> <want>     ('#' prefix marks shiny)
  accept <trade_id> | decline <trade_id>`

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v any) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = json.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func parseVariant(text string) models.Variant {
	name := strings.TrimSpace(text)
	return models.NewVariant(strings.TrimPrefix(name, "#"), strings.HasPrefix(name, "#"))
}

func parsePlayer(text string) (models.PlayerID, bool) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return models.PlayerID(id), true
}

// command 把一行输入转换成消息
func command(line string) (uint16, any, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, false
	}
	args := fields[1:]
	switch fields[0] {
	case "roll":
		return network.MsgTypeRoll, nil, true
	case "dex":
		if len(args) == 0 {
			return network.MsgTypePokedex, nil, true
		}
		if id, ok := parsePlayer(args[0]); ok && len(args) == 1 {
			return network.MsgTypePokedex, network.PokedexRequest{UserID: id}, true
		}
	case "chat":
		return network.MsgTypeChatMessage, network.ChatMessageRequest{Text: strings.Join(args, " ")}, true
	case "catch":
		if len(args) == 1 {
			return network.MsgTypeCatch, network.CatchRequest{EncounterID: args[0]}, true
		}
	case "evolve":
		if len(args) >= 1 {
			req := network.EvolveRequest{Species: args[0]}
			if len(args) > 1 {
				req.Target = args[1]
			}
			return network.MsgTypeEvolve, req, true
		}
	case "fav":
		if len(args) == 0 {
			return network.MsgTypeGetFavorite, nil, true
		}
		req := network.SetFavoriteRequest{Species: args[0]}
		if len(args) > 1 {
			shiny := args[1] == "shiny"
			req.Shiny = &shiny
		}
		return network.MsgTypeSetFavorite, req, true
	case "party":
		if len(args) == 0 {
			return network.MsgTypeGetParty, nil, true
		}
		if strings.HasPrefix(args[0], "@") {
			if id, ok := parsePlayer(strings.TrimPrefix(args[0], "@")); ok && len(args) == 1 {
				return network.MsgTypeGetParty, network.GetPartyRequest{UserID: id}, true
			}
			return 0, nil, false
		}
		return network.MsgTypeSetParty, network.SetPartyRequest{Entries: args}, true
	case "trade":
		if len(args) == 3 {
			target, ok := parsePlayer(args[0])
			if !ok {
				return 0, nil, false
			}
			return network.MsgTypeProposeTrade, network.ProposeTradeRequest{
				Target: target,
				Give:   parseVariant(args[1]),
				Want:   parseVariant(args[2]),
			}, true
		}
	case "accept":
		if len(args) == 1 {
			return network.MsgTypeAcceptTrade, network.ResolveTradeRequest{TradeID: args[0]}, true
		}
	case "decline":
		if len(args) == 1 {
			return network.MsgTypeDeclineTrade, network.ResolveTradeRequest{TradeID: args[0]}, true
		}
	}
	return 0, nil, false
}

func main() {
	host := flag.String("host", "localhost:8080", "gateway host:port")
	userID := flag.Int64("user", 1, "player id to identify as")
	flag.Parse()

	logger.InitDevelopment()
	defer logger.Sync()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	logger.Log.Infof("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infow("read error", "error", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				logger.Log.Warnf("Received invalid packet of size %d", len(message))
				continue
			}
			logger.Log.Infof("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	if err := send(c, network.MsgTypeIdentify, network.IdentifyRequest{UserID: models.PlayerID(*userID)}); err != nil {
		logger.Log.Errorw("write error", "error", err)
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	lines := make(chan string)
	go func() {
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- reader.Text()
		}
		close(lines)
	}()

	logger.Log.Info(usage)

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			_ = send(c, network.MsgTypeHeartbeat, nil)
		case <-interrupt:
			logger.Log.Info("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				logger.Log.Warnw("write close error", "error", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			msgID, body, ok := command(line)
			if !ok {
				logger.Log.Info(usage)
				continue
			}
			if err := send(c, msgID, body); err != nil {
				logger.Log.Errorw("write error", "error", err)
				return
			}
			logger.Log.Infof("-> SENT (ID: %d)", msgID)
		}
	}
}
