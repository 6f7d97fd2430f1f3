package handlers

import (
	"testing"

	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMsgType(t *testing.T) {
	got, err := readMsgType([]byte(`{"msg_type":"PLAY_CARD_REQUEST","played_card_id":4}`))
	require.NoError(t, err)
	assert.Equal(t, MsgPlayCardRequest, got)

	for _, raw := range []string{``, `[]`, `{"msg_type":null}`, `{"msg_type":"play_card_request"}`} {
		_, err := readMsgType([]byte(raw))
		assert.ErrorIs(t, err, errUnreadableType, raw)
	}
}

func TestDecodeRequest(t *testing.T) {
	cases := []struct {
		msgType string
		raw     string
		want    Request
	}{
		{MsgConnectionRequest, `{"msg_type":"CONNECTION_REQUEST","name":"alice"}`, ConnectionRequest{Name: "alice"}},
		{MsgConnectionRequest, `{"msg_type":"CONNECTION_REQUEST","name":"bob","password":"pw"}`, ConnectionRequest{Name: "bob", Password: "pw"}},
		{MsgGameStartRequest, `{"msg_type":"GAME_START_REQUEST"}`, GameStartRequest{}},
		{MsgDiscardRequest, `{"msg_type":"DISCARD_REQUEST","discarded_card_id":12}`, DiscardRequest{DiscardedCardID: 12}},
		{MsgPlayCardRequest, `{"msg_type":"PLAY_CARD_REQUEST","played_card_id":0}`, PlayCardRequest{PlayedCardID: 0}},
		{MsgHintColorRequest, `{"msg_type":"HINT_COLOR_REQUEST","target_player":"bob","color":"GREEN"}`, HintColorRequest{TargetPlayer: "bob", Color: models.Green}},
		{MsgHintNumberRequest, `{"msg_type":"HINT_NUMBER_REQUEST","target_player":"bob","number":"TWO"}`, HintNumberRequest{TargetPlayer: "bob", Number: models.Two}},
	}
	for _, tc := range cases {
		got, err := decodeRequest(tc.msgType, []byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}

	_, err := decodeRequest(MsgPlayCardRequest, []byte(`{"msg_type":"PLAY_CARD_REQUEST"}`))
	assert.ErrorIs(t, err, errMissingField)
}

func TestIsAction(t *testing.T) {
	assert.True(t, isAction(MsgDiscardRequest))
	assert.True(t, isAction(MsgHintNumberRequest))
	assert.False(t, isAction(MsgConnectionRequest))
	assert.False(t, isAction(MsgGameStartRequest))
}

func TestExplainFallsBack(t *testing.T) {
	assert.Equal(t, explainInternal, explain(assert.AnError))
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer abc"))
	assert.Empty(t, extractBearerToken("Basic abc"))
	assert.Empty(t, extractBearerToken(""))
}

func TestOriginHosts(t *testing.T) {
	assert.Equal(t, []string{"*", "a.example", "b.example:8080"},
		originHosts([]string{"*", "https://a.example", "http://b.example:8080/"}))
}
