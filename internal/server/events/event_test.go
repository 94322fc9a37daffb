package events

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/pairsync/internal/common"
	"github.com/dmitrijs2005/pairsync/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Known(t *testing.T) {
	for _, k := range []Kind{KindGroupFullInfo, KindPairJoined, KindOnlineNotification, KindUserExpired} {
		assert.True(t, k.Known(), k)
	}
	assert.False(t, Kind("GroupDeleted").Known())
	assert.False(t, Kind("").Known())
}

func TestEnvelope_DecodeRoundTrip(t *testing.T) {
	in := OnlineNotification{
		UserUID: "A",
		PairUID: "B",
		Self:    models.Identity{UID: "A", Alias: "alice"},
		Pair:    models.Identity{UID: "B"},
	}
	env, err := NewEnvelope(KindOnlineNotification, "A", in)
	require.NoError(t, err)
	assert.Equal(t, KindOnlineNotification, env.Type)
	assert.Equal(t, "A", env.TargetUID)

	var out OnlineNotification
	require.NoError(t, env.Decode(&out))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvelope_DecodeWrongShape(t *testing.T) {
	env := Envelope{Type: KindPairJoined, TargetUID: "A", Payload: []byte(`[1,2]`)}
	var out PairJoined
	err := env.Decode(&out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedEvent))
}

func TestDecodeBatch(t *testing.T) {
	good, err := NewEnvelope(KindUserExpired, "U1", UserExpired{UID: "U1"})
	require.NoError(t, err)
	data, err := EncodeBatch(Batch{ID: "b1", Events: []Envelope{good, good}})
	require.NoError(t, err)

	b, err := DecodeBatch(data)
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Len(t, b.Events, 2)

	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"missing type", `{"id":"x","events":[{"targetUID":"A","payload":{}}]}`},
		{"missing target", `{"id":"x","events":[{"type":"PairJoined","payload":{}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBatch([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrMalformedEvent))
		})
	}
}

func TestDecodeBatch_UnknownKindIsNotMalformed(t *testing.T) {
	b, err := DecodeBatch([]byte(`{"id":"x","events":[{"type":"Later","targetUID":"A","payload":{}}]}`))
	require.NoError(t, err)
	assert.False(t, b.Events[0].Type.Known())
}
