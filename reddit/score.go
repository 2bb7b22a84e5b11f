package reddit

import (
	"math"
	"sort"
	"time"
)

// TrendingScore ranks a post by votes, approval, discussion and freshness.
// Posts older than 48 hours get no freshness bonus.
func TrendingScore(p Post, now time.Time) float64 {
	ageHours := now.Sub(time.Unix(int64(p.CreatedUTC), 0)).Hours()

	votes := math.Log10(math.Max(float64(p.Score), 1)) * 10
	approval := p.UpvoteRatio * 100
	discussion := math.Log10(math.Max(float64(p.NumComments), 1)) * 10
	freshness := math.Max(0, 1-ageHours/48) * 10

	return 0.4*votes + 0.2*approval + 0.3*discussion + 0.1*freshness
}

// RankPosts returns the n highest scoring non-stickied posts.
func RankPosts(posts []Post, n int, now time.Time) []Post {
	type scored struct {
		post  Post
		score float64
	}
	ranked := make([]scored, 0, len(posts))
	for _, p := range posts {
		if p.Stickied {
			continue
		}
		ranked = append(ranked, scored{post: p, score: TrendingScore(p, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]Post, n)
	for i := range out {
		out[i] = ranked[i].post
	}
	return out
}
