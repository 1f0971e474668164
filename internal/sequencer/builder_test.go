package sequencer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArranJacques/paplin/internal/move"
)

const ms = time.Millisecond

func step(ins move.Instruction, d time.Duration) move.TimedInstruction {
	return move.TimedInstruction{Instruction: ins, Duration: d}
}

func TestMergeIntoEmptyBuilder(t *testing.T) {
	b := New()
	b.MoveShoulderUp(500 * ms)

	assert.Equal(t, move.Sequence{step(move.Instruction{Magnitude: 64}, 500*ms)}, b.Sequence())
}

func TestMergeSplitsLongerStep(t *testing.T) {
	b := New()
	b.MoveShoulderUp(500 * ms)
	b.CloseGrip(300 * ms)

	want := move.Sequence{
		step(move.Instruction{Magnitude: 65}, 300*ms),
		step(move.Instruction{Magnitude: 64}, 200*ms),
	}
	assert.Equal(t, want, b.Sequence())
}

func TestMergeExactOverlapCombinesInPlace(t *testing.T) {
	b := New()
	b.MoveElbowUp(400 * ms)
	b.MoveShoulderClockwise(400 * ms)

	want := move.Sequence{step(move.Instruction{Magnitude: 4, FlagsA: 1}, 400*ms)}
	assert.Equal(t, want, b.Sequence())
}

func TestMergeExtendsPastEnd(t *testing.T) {
	b := New()
	b.CloseGrip(300 * ms)
	b.MoveShoulderUp(500 * ms)

	want := move.Sequence{
		step(move.Instruction{Magnitude: 65}, 300*ms),
		step(move.Instruction{Magnitude: 64}, 200*ms),
	}
	assert.Equal(t, want, b.Sequence())
}

func TestMergeWalksSeveralSteps(t *testing.T) {
	b := New()
	b.MoveShoulderUp(100 * ms)
	b.MoveElbowUp(300 * ms)
	b.OpenGrip(600 * ms)
	b.MoveWristDown(200 * ms)

	want := move.Sequence{
		step(move.Instruction{Magnitude: 64 + 4 + 2 + 16}, 100*ms),
		step(move.Instruction{Magnitude: 4 + 2 + 16}, 100*ms),
		step(move.Instruction{Magnitude: 4 + 2}, 100*ms),
		step(move.Instruction{Magnitude: 2}, 300*ms),
	}
	assert.Equal(t, want, b.Sequence())
}

func TestMergeSameFlagTwiceCancels(t *testing.T) {
	b := New()
	b.MoveShoulderClockwise(200 * ms)
	b.MoveShoulderClockwise(100 * ms)

	want := move.Sequence{
		step(move.Instruction{}, 100*ms),
		step(move.Instruction{FlagsA: 1}, 100*ms),
	}
	assert.Equal(t, want, b.Sequence())
}

func TestMergeZeroDurationSplitsFirstStep(t *testing.T) {
	b := New()
	b.MoveShoulderUp(200 * ms)
	b.CloseGrip(0)

	want := move.Sequence{
		step(move.Instruction{Magnitude: 65}, 0),
		step(move.Instruction{Magnitude: 64}, 200*ms),
	}
	assert.Equal(t, want, b.Sequence())
}

func TestMergeUnspecifiedDuration(t *testing.T) {
	t.Run("empty builder stores it verbatim", func(t *testing.T) {
		b := New()
		b.CloseGrip(Unspecified)
		assert.Equal(t, move.Sequence{step(move.Instruction{Magnitude: 1}, Unspecified)}, b.Sequence())
	})

	t.Run("populated builder combines into first step", func(t *testing.T) {
		b := New()
		b.MoveShoulderUp(300 * ms)
		b.MoveElbowUp(500 * ms)
		b.CloseGrip(Unspecified)

		want := move.Sequence{
			step(move.Instruction{Magnitude: 64 + 4 + 1}, 300*ms),
			step(move.Instruction{Magnitude: 4}, 200*ms),
		}
		assert.Equal(t, want, b.Sequence())
	})

	t.Run("step without duration is never split", func(t *testing.T) {
		b := New()
		b.CloseGrip(Unspecified)
		b.MoveShoulderUp(500 * ms)
		assert.Equal(t, move.Sequence{step(move.Instruction{Magnitude: 65}, Unspecified)}, b.Sequence())
	})
}

func TestAddByName(t *testing.T) {
	b := New()
	require.NoError(t, b.Add("shoulder-up", 500*ms))
	require.NoError(t, b.Add("grip-close", 300*ms))
	require.Error(t, b.Add("nose-left", 100*ms))

	assert.Equal(t, 2, b.Len())
}

func TestSequenceReturnsCopy(t *testing.T) {
	b := New()
	b.MoveShoulderUp(500 * ms)

	seq := b.Sequence()
	seq[0].Duration = time.Second

	assert.Equal(t, 500*ms, b.Sequence()[0].Duration)
}

type request struct {
	ins move.Instruction
	d   time.Duration
}

func build(reqs []request) move.Sequence {
	b := New()
	for _, r := range reqs {
		b.Merge(r.ins, r.d)
	}
	return b.Sequence()
}

func randomRequests(r *rand.Rand, n int) []request {
	motions := move.Names()
	reqs := make([]request, n)
	for i := range reqs {
		reqs[i] = request{
			ins: move.Must(move.Motion(motions[r.Intn(len(motions))])),
			d:   time.Duration(r.Intn(20)+1) * 50 * ms,
		}
	}
	return reqs
}

func TestMergeConservesDuration(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		reqs := randomRequests(r, r.Intn(8)+1)

		var longest time.Duration
		for _, req := range reqs {
			if req.d > longest {
				longest = req.d
			}
		}

		seq := build(reqs)
		assert.Equal(t, longest, seq.TotalDuration(), "requests %v", reqs)
		for _, s := range seq {
			assert.Positive(t, s.Duration, "zero-length step in %v", seq)
		}
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		reqs := randomRequests(r, r.Intn(6)+2)
		want := build(reqs)

		shuffled := append([]request(nil), reqs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		assert.Equal(t, want, build(shuffled))
	}
}

func TestEachStepCarriesActiveRequests(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	for i := 0; i < 100; i++ {
		reqs := randomRequests(r, r.Intn(6)+1)
		seq := build(reqs)

		var start time.Duration
		for _, s := range seq {
			var want move.Instruction
			for _, req := range reqs {
				if req.d > start {
					want = move.Combine(want, req.ins)
				}
			}
			require.Equal(t, want, s.Instruction, "step starting at %v of %v", start, seq)
			start += s.Duration
		}
	}
}
