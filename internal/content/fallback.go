package content

import "github.com/bugmatch/bugmatch/internal/models"

// builtinPairs is the fixed local pair set used whenever the provider
// fails. Ordering is stable so fallback boards are deterministic before
// shuffling.
var builtinPairs = []Pair{
	{
		Bug:        "for i := 0; i <= len(items); i++ { use(items[i]) }",
		Solution:   "for i := 0; i < len(items); i++ { use(items[i]) }",
		Difficulty: models.DifficultyEasy,
	},
	{
		Bug:        "if err == nil { return err }",
		Solution:   "if err != nil { return err }",
		Difficulty: models.DifficultyEasy,
	},
	{
		Bug:        "x = x / 0",
		Solution:   "if y != 0 { x = x / y }",
		Difficulty: models.DifficultyEasy,
	},
	{
		Bug:        "total := 0.1 + 0.2; if total == 0.3 { ok() }",
		Solution:   "if math.Abs(total-0.3) < 1e-9 { ok() }",
		Difficulty: models.DifficultyMedium,
	},
	{
		Bug:        "defer f.Close() // f may be nil when Open failed",
		Solution:   "if err != nil { return err }; defer f.Close()",
		Difficulty: models.DifficultyMedium,
	},
	{
		Bug:        "go func() { results = append(results, v) }()",
		Solution:   "mu.Lock(); results = append(results, v); mu.Unlock()",
		Difficulty: models.DifficultyMedium,
	},
	{
		Bug:        "for k := range m { delete(m, k); m[k+1] = 0 }",
		Solution:   "collect keys first, then mutate the map",
		Difficulty: models.DifficultyHard,
	},
	{
		Bug:        "ch := make(chan int); ch <- 1; v := <-ch",
		Solution:   "ch := make(chan int, 1); ch <- 1; v := <-ch",
		Difficulty: models.DifficultyHard,
	},
	{
		Bug:        "for _, v := range vs { go func() { use(v) }() } // pre-1.22 capture",
		Solution:   "for _, v := range vs { v := v; go func() { use(v) }() }",
		Difficulty: models.DifficultyHard,
	},
	{
		Bug:        "s := []int{}; s[0] = 1",
		Solution:   "s := make([]int, 1); s[0] = 1",
		Difficulty: models.DifficultyHard,
	},
}

// FallbackPairs returns exactly count pairs from the built-in set, cycling
// when count exceeds the set size.
func FallbackPairs(count int) []Pair {
	out := make([]Pair, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, builtinPairs[i%len(builtinPairs)])
	}
	return out
}
