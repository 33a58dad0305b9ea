package fuelopt

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/gonum/floats"
)

// GAConfig tunes the genetic multi-impulse search. The zero Seed draws one
// from the clock; set it for reproducible runs.
type GAConfig struct {
	PopulationSize int
	MaxGenerations int
	StallLimit     int // generations without improvement before stopping
	TournamentSize int
	MutationRate   float64
	MutationSigma  float64
	Seed           int64
}

// DefaultGAConfig returns the reference GA settings.
func DefaultGAConfig() GAConfig {
	return GAConfig{
		PopulationSize: 50,
		MaxGenerations: 1000,
		StallLimit:     50,
		TournamentSize: 3,
		MutationRate:   0.1,
		MutationSigma:  0.1,
	}
}

// An individual encodes up to k impulses as 2k genes in [0, 1]: the first k
// are burn times (fraction of an hour from the previous burn), the last k are
// burn magnitudes (fraction of 1 km/s). Individuals of different impulse
// counts coexist in one population.
type individual []float64

func (ind individual) impulses() int { return len(ind) / 2 }

func (ind individual) clone() individual {
	c := make(individual, len(ind))
	copy(c, ind)
	return c
}

// MultiImpulse searches for a fuel-efficient impulse sequence from the
// initial to the target state with a genetic algorithm. A zero timeConstraint
// leaves the mission duration unconstrained. The search is elitist on the
// best individual and stops after StallLimit generations without improvement
// or at the generation cap, whichever comes first; if no feasible individual
// is ever found it falls back to a direct two-impulse transfer.
func (t *TrajectoryOptimizer) MultiImpulse(initial, target State, sys *PropulsionSystem, maxImpulses int, timeConstraint time.Duration) Trajectory {
	cfg := t.GA
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	fitness := func(ind individual) float64 {
		traj := t.decode(ind, initial, sys)
		if timeConstraint > 0 && traj.TotalTime > timeConstraint {
			return math.Inf(1)
		}
		return traj.TotalFuel + 0.1*traj.TotalTime.Seconds() + 0.01*float64(len(traj.Segments))
	}

	population := t.seedPopulation(rng, maxImpulses)
	bestFitness := math.Inf(1)
	var best individual
	stall := 0
	generation := 0
	for ; generation < cfg.MaxGenerations; generation++ {
		scores := make([]float64, len(population))
		for i, ind := range population {
			scores[i] = fitness(ind)
		}
		minIdx := floats.MinIdx(scores)
		if scores[minIdx] < bestFitness {
			bestFitness = scores[minIdx]
			best = population[minIdx].clone()
			stall = 0
		} else {
			stall++
		}
		if stall > cfg.StallLimit {
			break
		}

		next := make([]individual, 0, cfg.PopulationSize)
		for len(next) < cfg.PopulationSize {
			p1 := t.tournament(rng, population, scores)
			p2 := t.tournament(rng, population, scores)
			next = append(next, t.mutate(rng, t.crossover(rng, p1, p2)))
		}
		population = next
	}

	if best == nil {
		return t.twoImpulse(initial, target, sys)
	}
	traj := t.decode(best, initial, sys)
	traj.Iterations = generation
	traj.Converged = generation < cfg.MaxGenerations
	return traj
}

// seedPopulation draws random individuals with 1..maxImpulses burns each and
// the burn times pre-sorted.
func (t *TrajectoryOptimizer) seedPopulation(rng *rand.Rand, maxImpulses int) []individual {
	population := make([]individual, t.GA.PopulationSize)
	for p := range population {
		k := 1 + rng.Intn(maxImpulses)
		ind := make(individual, 2*k)
		for i := range ind {
			ind[i] = rng.Float64()
		}
		sort.Float64s(ind[:k])
		population[p] = ind
	}
	return population
}

// tournament picks the fittest of TournamentSize distinct individuals.
func (t *TrajectoryOptimizer) tournament(rng *rand.Rand, population []individual, scores []float64) individual {
	picks := rng.Perm(len(population))[:t.GA.TournamentSize]
	winner := picks[0]
	for _, idx := range picks[1:] {
		if scores[idx] < scores[winner] {
			winner = idx
		}
	}
	return population[winner].clone()
}

// crossover performs single-point crossover. Parents with different impulse
// counts are reconciled by truncating the longer one, which biases the
// population toward fewer impulses over generations. That bias is kept: it
// matches the fitness term that already charges per segment.
func (t *TrajectoryOptimizer) crossover(rng *rand.Rand, p1, p2 individual) individual {
	shorter, longer := p1, p2
	if len(p2) < len(p1) {
		shorter, longer = p2, p1
	}
	longer = longer[:len(shorter)]
	point := 1 + rng.Intn(len(shorter)-1)
	child := make(individual, len(shorter))
	copy(child, shorter[:point])
	copy(child[point:], longer[point:])
	return child
}

// mutate applies Gaussian noise gene by gene, clipped back into [0, 1].
func (t *TrajectoryOptimizer) mutate(rng *rand.Rand, ind individual) individual {
	for i := range ind {
		if rng.Float64() < t.GA.MutationRate {
			ind[i] += rng.NormFloat64() * t.GA.MutationSigma
			if ind[i] < 0 {
				ind[i] = 0
			} else if ind[i] > 1 {
				ind[i] = 1
			}
		}
	}
	return ind
}

// decode expands an individual into a trajectory: coast to each burn time,
// apply the impulse along the velocity direction, cost it with the real
// propulsion system at the nominal vehicle mass, then coast a final hour.
// Unlike the other strategies, the Start/End stamps here are the coast
// before each burn, relative to the previous burn rather than to the start
// of the trajectory, and TotalTime is the last gene's coast plus the final
// hour.
func (t *TrajectoryOptimizer) decode(ind individual, initial State, sys *PropulsionSystem) Trajectory {
	k := ind.impulses()
	times := ind[:k]
	magnitudes := ind[k:]

	segments := make([]Segment, 0, k)
	current := initial
	var totalΔv, totalFuel float64
	for i := 0; i < k; i++ {
		coastTime := time.Duration(times[i] * float64(time.Hour))
		coast := Propagate(current, coastTime, t.Body)
		Δv := magnitudes[i] // genes scale directly to km/s
		burned := t.applyΔv(coast, Δv)
		consumption := t.Propulsion.FuelConsumption(sys, Δv, t.Mass)
		segments = append(segments, Segment{
			Start:      coastTime,
			End:        coastTime,
			StartState: coast,
			EndState:   burned,
			Δv:         Δv,
			FuelMass:   consumption.FuelMass,
			System:     sys,
		})
		totalΔv += Δv
		totalFuel += consumption.FuelMass
		current = burned
	}

	finalCoast := time.Hour
	Propagate(current, finalCoast, t.Body)

	return Trajectory{
		Segments:   segments,
		TotalΔv:    totalΔv,
		TotalFuel:  totalFuel,
		TotalTime:  time.Duration(times[k-1]*float64(time.Hour)) + finalCoast,
		Method:     "Genetic Algorithm",
		Iterations: 1,
		Converged:  true,
	}
}
