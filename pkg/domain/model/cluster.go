package model

import (
	"fmt"
	"sort"
	"strings"
)

// ClusterItem is one embedded bookmark fed to clustering
type ClusterItem struct {
	ID        BookmarkID
	Title     string
	URL       string
	Tags      []string
	Embedding []float32
}

// ClusterMember is a bookmark inside a suggested collection
type ClusterMember struct {
	ID    BookmarkID `json:"id"`
	Title string     `json:"title"`
	URL   string     `json:"url"`
}

// Cluster is a suggested smart collection
type Cluster struct {
	Name          string          `json:"name"`
	BookmarkCount int             `json:"bookmarkCount"`
	Bookmarks     []ClusterMember `json:"bookmarks"`
}

// GreedyClusters groups items in one pass: each unassigned item seeds a
// cluster and absorbs every later unassigned item whose similarity to the
// seed is at least threshold. Clusters smaller than minSize are dropped and
// their members are not reconsidered. The result depends on input order.
func GreedyClusters(items []ClusterItem, threshold float64, minSize int) []Cluster {
	assigned := make([]bool, len(items))
	clusters := []Cluster{}

	for i := range items {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []int{i}

		for j := i + 1; j < len(items); j++ {
			if assigned[j] {
				continue
			}
			if CosineSimilarity(items[i].Embedding, items[j].Embedding) >= threshold {
				assigned[j] = true
				members = append(members, j)
			}
		}

		if len(members) < minSize {
			continue
		}

		cluster := Cluster{
			BookmarkCount: len(members),
			Bookmarks:     make([]ClusterMember, 0, len(members)),
		}
		var tags []string
		for _, idx := range members {
			item := items[idx]
			cluster.Bookmarks = append(cluster.Bookmarks, ClusterMember{
				ID:    item.ID,
				Title: item.Title,
				URL:   item.URL,
			})
			tags = append(tags, item.Tags...)
		}
		cluster.Name = ClusterName(tags, len(clusters)+1)
		clusters = append(clusters, cluster)
	}

	return clusters
}

// ClusterName joins the two most frequent tags. Ties keep first-seen order.
// Without tags it falls back to "Collection N".
func ClusterName(tags []string, rank int) string {
	type tagCount struct {
		name  string
		count int
		first int
	}

	counts := map[string]*tagCount{}
	for i, t := range tags {
		key := strings.ToLower(t)
		if c, ok := counts[key]; ok {
			c.count++
			continue
		}
		counts[key] = &tagCount{name: t, count: 1, first: i}
	}
	if len(counts) == 0 {
		return fmt.Sprintf("Collection %d", rank)
	}

	ranked := make([]*tagCount, 0, len(counts))
	for _, c := range counts {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) == 1 {
		return ranked[0].name
	}
	return ranked[0].name + " & " + ranked[1].name
}
