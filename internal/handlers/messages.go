// internal/handlers/messages.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/hanabi/internal/game"
	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/tidwall/gjson"
)

// Inbound message types.
const (
	MsgConnectionRequest = "CONNECTION_REQUEST"
	MsgGameStartRequest  = "GAME_START_REQUEST"
	MsgDiscardRequest    = "DISCARD_REQUEST"
	MsgPlayCardRequest   = "PLAY_CARD_REQUEST"
	MsgHintColorRequest  = "HINT_COLOR_REQUEST"
	MsgHintNumberRequest = "HINT_NUMBER_REQUEST"
)

// Outbound message types.
const (
	MsgErrorResponse      = "ERROR_RESPONSE"
	MsgConnectionResponse = "CONNECTION_RESPONSE"
	MsgGameStartResponse  = "GAME_START_RESPONSE"
	MsgDiscardResponse    = "DISCARD_CARD_RESPONSE"
	MsgPlayCardResponse   = "PLAY_CARD_RESPONSE"
	MsgHintColorResponse  = "HINT_COLOR_RESPONSE"
	MsgHintNumberResponse = "HINT_NUMBER_RESPONSE"
	MsgGameOverResponse   = "GAME_OVER_RESPONSE"
)

var (
	errUnreadableType = errors.New("msg_type missing or not a known message type")
	errMissingField   = errors.New("required field missing")
)

// Request is one decoded inbound message. The set of implementations is closed.
type Request interface {
	isRequest()
}

type ConnectionRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

type GameStartRequest struct{}

type DiscardRequest struct {
	DiscardedCardID int `json:"discarded_card_id"`
}

type PlayCardRequest struct {
	PlayedCardID int `json:"played_card_id"`
}

type HintColorRequest struct {
	TargetPlayer string       `json:"target_player"`
	Color        models.Color `json:"color"`
}

type HintNumberRequest struct {
	TargetPlayer string        `json:"target_player"`
	Number       models.Number `json:"number"`
}

func (ConnectionRequest) isRequest() {}
func (GameStartRequest) isRequest()  {}
func (DiscardRequest) isRequest()    {}
func (PlayCardRequest) isRequest()   {}
func (HintColorRequest) isRequest()  {}
func (HintNumberRequest) isRequest() {}

// requiredFields lists, per message type, the fields that must be present.
var requiredFields = map[string][]string{
	MsgConnectionRequest: {"name"},
	MsgGameStartRequest:  nil,
	MsgDiscardRequest:    {"discarded_card_id"},
	MsgPlayCardRequest:   {"played_card_id"},
	MsgHintColorRequest:  {"target_player", "color"},
	MsgHintNumberRequest: {"target_player", "number"},
}

// readMsgType sniffs msg_type without decoding the rest of the message.
func readMsgType(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", errUnreadableType
	}
	t := gjson.GetBytes(raw, "msg_type")
	if t.Type != gjson.String {
		return "", errUnreadableType
	}
	if _, known := requiredFields[t.Str]; !known {
		return "", errUnreadableType
	}
	return t.Str, nil
}

// isAction reports whether msgType is a turn-consuming move.
func isAction(msgType string) bool {
	switch msgType {
	case MsgDiscardRequest, MsgPlayCardRequest, MsgHintColorRequest, MsgHintNumberRequest:
		return true
	}
	return false
}

// decodeRequest decodes the flat message body for a type readMsgType accepted.
func decodeRequest(msgType string, raw []byte) (Request, error) {
	for _, f := range requiredFields[msgType] {
		if !gjson.GetBytes(raw, f).Exists() {
			return nil, fmt.Errorf("%w: %s", errMissingField, f)
		}
	}

	var (
		req Request
		err error
	)
	switch msgType {
	case MsgConnectionRequest:
		var r ConnectionRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case MsgGameStartRequest:
		req = GameStartRequest{}
	case MsgDiscardRequest:
		var r DiscardRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case MsgPlayCardRequest:
		var r PlayCardRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case MsgHintColorRequest:
		var r HintColorRequest
		err = json.Unmarshal(raw, &r)
		req = r
	case MsgHintNumberRequest:
		var r HintNumberRequest
		err = json.Unmarshal(raw, &r)
		req = r
	default:
		return nil, errUnreadableType
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ErrorResponse goes to the sender only.
type ErrorResponse struct {
	MsgType     string `json:"msg_type"`
	Explanation string `json:"explanation"`
	ErrDetails  string `json:"err_details,omitempty"`
}

// ConnectionResponse announces a new player. Token is only set in the copy
// sent to the player who joined.
type ConnectionResponse struct {
	MsgType string   `json:"msg_type"`
	Names   []string `json:"names"`
	Player  string   `json:"player"`
	GameID  string   `json:"game_id"`
	Token   string   `json:"token,omitempty"`
}

type GameStartResponse struct {
	MsgType    string         `json:"msg_type"`
	Players    []string       `json:"players"`
	NextPlayer string         `json:"next_player"`
	GameState  game.TableView `json:"game_state"`
}

type DiscardCardResponse struct {
	MsgType       string         `json:"msg_type"`
	Player        string         `json:"player"`
	DiscardedCard models.Card    `json:"discarded_card"`
	DrawnCard     *game.CardView `json:"drawn_card,omitempty"`
	HintGained    bool           `json:"hint_gained"`
	NextPlayer    string         `json:"next_player,omitempty"`
	GameState     game.TableView `json:"game_state"`
}

type PlayCardResponse struct {
	MsgType    string         `json:"msg_type"`
	Player     string         `json:"player"`
	PlayedCard models.Card    `json:"played_card"`
	Success    bool           `json:"success"`
	DrawnCard  *game.CardView `json:"drawn_card,omitempty"`
	HintGained bool           `json:"hint_gained"`
	EpicFail   bool           `json:"epic_fail"`
	NextPlayer string         `json:"next_player,omitempty"`
	GameState  game.TableView `json:"game_state"`
}

type HintColorResponse struct {
	MsgType       string         `json:"msg_type"`
	HintingPlayer string         `json:"hinting_player"`
	TargetPlayer  string         `json:"target_player"`
	Color         models.Color   `json:"color"`
	MatchedIDs    []int          `json:"matched_card_ids"`
	NextPlayer    string         `json:"next_player,omitempty"`
	GameState     game.TableView `json:"game_state"`
}

type HintNumberResponse struct {
	MsgType       string         `json:"msg_type"`
	HintingPlayer string         `json:"hinting_player"`
	TargetPlayer  string         `json:"target_player"`
	Number        models.Number  `json:"number"`
	MatchedIDs    []int          `json:"matched_card_ids"`
	NextPlayer    string         `json:"next_player,omitempty"`
	GameState     game.TableView `json:"game_state"`
}

type GameOverResponse struct {
	MsgType   string         `json:"msg_type"`
	Score     int            `json:"score"`
	Reason    game.EndReason `json:"reason"`
	GameState game.TableView `json:"game_state"`
}
