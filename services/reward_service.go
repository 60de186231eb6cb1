package services

import (
	"math/rand/v2"
	"sync"
	"time"

	"luckyspin/models"

	"github.com/shopspring/decimal"
)

// Reward ranges and per-number multipliers (EGP, TON, USDT).
const (
	normalMin = 1
	normalMax = 5
	rareMin   = 16
	rareMax   = 20
)

var (
	normalMultipliers = models.Amounts{
		EGP:  decimal.NewFromInt(2),
		TON:  decimal.RequireFromString("0.00005"),
		USDT: decimal.RequireFromString("0.064"),
	}
	rareMultipliers = models.Amounts{
		EGP:  decimal.NewFromInt(10),
		TON:  decimal.RequireFromString("0.00025"),
		USDT: decimal.RequireFromString("0.32"),
	}
)

// Draw is one resolved play.
type Draw struct {
	Number  int            `json:"number"`
	Outcome models.Outcome `json:"outcome"`
	Rewards models.Amounts `json:"rewards"`
}

// RewardGenerator maps random draws to reward tiers. The source is injected
// so tests can seed it.
type RewardGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRewardGenerator(src rand.Source) *RewardGenerator {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	return &RewardGenerator{rng: rand.New(src)}
}

// Draw picks a rare number in [16,20] with probability rareChance, otherwise
// a normal number in [1,5].
func (g *RewardGenerator) Draw(rareChance float64) Draw {
	g.mu.Lock()
	roll := g.rng.Float64()
	rare := roll < rareChance
	var n int
	if rare {
		n = rareMin + g.rng.IntN(rareMax-rareMin+1)
	} else {
		n = normalMin + g.rng.IntN(normalMax-normalMin+1)
	}
	g.mu.Unlock()

	return RewardFor(n, rare)
}

// RewardFor is the deterministic reward of a drawn number.
func RewardFor(number int, rare bool) Draw {
	m, outcome := normalMultipliers, models.OutcomeNormal
	if rare {
		m, outcome = rareMultipliers, models.OutcomeRare
	}
	n := decimal.NewFromInt(int64(number))
	return Draw{
		Number:  number,
		Outcome: outcome,
		Rewards: models.Amounts{
			EGP:  n.Mul(m.EGP),
			TON:  n.Mul(m.TON),
			USDT: n.Mul(m.USDT),
		},
	}
}
