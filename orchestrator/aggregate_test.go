package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAggregateIgnoresNotDetected(t *testing.T) {
	tally := Aggregate([]FrameOutcome{
		Detected("happy"), NotDetected, Detected("happy"), Detected("sad"), NotDetected, Detected("sad"),
	})
	assert.Equal(t, map[string]int{"happy": 2, "sad": 2}, tally.Counts())
	assert.Equal(t, 4, tally.Total())
	assert.Equal(t, 2, tally.Len())
	assert.Equal(t, 0, tally.Count("angry"))
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	a := Aggregate([]FrameOutcome{Detected("sad"), Detected("happy"), NotDetected, Detected("sad")})
	b := Aggregate([]FrameOutcome{Detected("happy"), Detected("sad"), Detected("sad"), NotDetected})
	assert.Equal(t, a.Counts(), b.Counts())
}

func TestFormatRanksWithFirstSeenTieBreak(t *testing.T) {
	tally := Aggregate([]FrameOutcome{
		Detected("happy"), NotDetected, Detected("happy"), Detected("sad"), NotDetected, Detected("sad"),
	})
	assert.Equal(t, []Entry{{"happy", 2}, {"sad", 2}}, Format(tally).Entries)

	tally = Aggregate([]FrameOutcome{
		Detected("neutral"), Detected("fear"), Detected("angry"), Detected("angry"), Detected("fear"), Detected("angry"),
	})
	assert.Equal(t, []Entry{{"angry", 3}, {"fear", 2}, {"neutral", 1}}, Format(tally).Entries)

	tally = Aggregate([]FrameOutcome{Detected("sad"), Detected("happy"), Detected("surprise"), Detected("happy"), Detected("sad")})
	assert.Equal(t, []Entry{{"sad", 2}, {"happy", 2}, {"surprise", 1}}, Format(tally).Entries)
}

func TestFormatEmpty(t *testing.T) {
	assert.True(t, Format(Aggregate([]FrameOutcome{NotDetected, NotDetected})).Empty())
	assert.True(t, Format(NewTally()).Empty())
	assert.True(t, Format(nil).Empty())
}

func TestEmptyReportEncodesEntriesAsList(t *testing.T) {
	rep := Format(NewTally())

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":[]}`, string(raw))

	out, err := yaml.Marshal(rep)
	require.NoError(t, err)
	assert.Equal(t, "entries: []\n", string(out))
}

func TestFormatIsIdempotent(t *testing.T) {
	tally := Aggregate([]FrameOutcome{Detected("fear"), Detected("happy"), Detected("happy")})
	first := Format(tally)
	second := Format(tally)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]int{"fear": 1, "happy": 2}, tally.Counts(), "Format does not mutate the tally")
}

func TestTallyCountsIsACopy(t *testing.T) {
	tally := Aggregate([]FrameOutcome{Detected("happy")})
	c := tally.Counts()
	c["happy"] = 99
	assert.Equal(t, 1, tally.Count("happy"))
}
