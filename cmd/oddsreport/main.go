// Odds report for the casino games. Prints the exact Mines table and checks
// the Limbo draw against its implied win rate by simulation.
package main

import (
	"flag"
	"fmt"
	"math"

	"casino/games"

	"github.com/shopspring/decimal"
)

func main() {
	trials := flag.Int("trials", 200000, "limbo draws per target")
	flag.Parse()

	fmt.Println("=== Mines Odds (5x5 grid) ===")
	minesTable([]int{1, 3, 5, 10, 24})

	fmt.Println("\n=== Limbo Simulation ===")
	for _, target := range []string{"1.01", "1.5", "2", "3", "10", "100"} {
		analyzeLimbo(decimal.RequireFromString(target), *trials)
	}
}

// minesTable prints win chance and multiplier for each reveal count
func minesTable(mineCounts []int) {
	for _, mines := range mineCounts {
		fmt.Printf("\n%d mine(s):\n", mines)
		fmt.Printf("  %7s  %12s  %12s\n", "reveals", "win chance", "multiplier")
		for reveals := 1; reveals <= games.MinesCells-mines; reveals++ {
			chance, err := games.WinProbability(mines, reveals)
			if err != nil {
				fmt.Printf("  %7d  error: %v\n", reveals, err)
				continue
			}
			multiplier, _ := games.Multiplier(mines, reveals)
			fmt.Printf("  %7d  %11.6f%%  %11.4fx\n", reveals, games.RatFloat(chance)*100, games.RatFloat(multiplier))
		}
	}
}

// analyzeLimbo compares the observed hit rate of a target with 1/target
func analyzeLimbo(target decimal.Decimal, trials int) {
	wins := 0
	for i := 0; i < trials; i++ {
		if games.DrawLimboMultiplier(games.DefaultSource).GreaterThanOrEqual(target) {
			wins++
		}
	}

	expected := games.LimboWinProbability(target)
	actual := float64(wins) / float64(trials)

	expectedWins := float64(trials) * expected
	expectedLosses := float64(trials) * (1 - expected)
	chiSquared := math.Pow(float64(wins)-expectedWins, 2)/expectedWins +
		math.Pow(float64(trials-wins)-expectedLosses, 2)/expectedLosses

	// Return to player at the target multiplier; 1.0 is a fair game
	rtp := actual * target.InexactFloat64()

	fmt.Printf("Target: %7sx | Expected: %8.4f%% | Actual: %8.4f%% | RTP: %.4f | χ²: %.2f",
		target.StringFixed(2), expected*100, actual*100, rtp, chiSquared)
	if chiSquared < 3.84 {
		fmt.Println(" ✓ PASS")
	} else {
		fmt.Println(" ✗ FAIL")
	}
}
