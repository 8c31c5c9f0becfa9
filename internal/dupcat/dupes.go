package dupcat

import (
	"context"
	"fmt"
)

// ResolveOptions restricts duplicate resolution to a subset of the
// catalog. Zero values mean "no restriction".
type ResolveOptions struct {
	PathPrefix string
	MinSize    int64
	MaxSize    int64
}

// PhysicalCluster is the set of cataloged paths sharing one physical
// identity (device, inode), that is, hardlinks of a single underlying
// file. Paths are in lexicographic order.
type PhysicalCluster struct {
	Dev   uint64
	Inode uint64
	Size  int64
	Paths []string
}

// DuplicateGroup is a set of physical clusters with identical content.
// Clusters[0] holds the group's representative; every other cluster is
// wasted space.
type DuplicateGroup struct {
	Digests  DigestPair
	Clusters []PhysicalCluster
	Waste    int64
}

// Representative returns the canonical path for the group. Selection is
// deterministic: the first path in lexicographic order.
func (g *DuplicateGroup) Representative() string {
	return g.Clusters[0].Paths[0]
}

// DuplicateReport is the outcome of duplicate resolution. Partial is
// set when the run was cancelled between groups; the groups collected
// so far are still valid.
type DuplicateReport struct {
	Groups     []DuplicateGroup
	TotalWaste int64
	Sentinel   bool // at least one group carries sentinel (hashing-disabled) digests
	Partial    bool
}

// FindDuplicateGroups groups catalog records by digest pair, collapses
// records sharing a physical identity into one cluster, and returns the
// groups that still contain more than one cluster.
//
// Hardlinked paths always share digests, so without the collapse every
// hardlink would look like a duplicate of itself. A group whose records
// all share one inode is dropped entirely: it wastes nothing.
func (s *Service) FindDuplicateGroups(ctx context.Context, opts ResolveOptions) (*DuplicateReport, error) {
	filter := DuplicateFilter{
		PathPrefix: opts.PathPrefix,
		MinSize:    opts.MinSize,
		MaxSize:    opts.MaxSize,
	}
	pairs, err := s.catalog.DuplicateDigests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate digests: %w", err)
	}

	report := &DuplicateReport{}
	for _, pair := range pairs {
		if ctx.Err() != nil {
			report.Partial = true
			break
		}

		recs, err := s.catalog.FindByDigest(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("fetching records for digest pair: %w", err)
		}

		group := buildGroup(pair, recs)
		if len(group.Clusters) < 2 {
			// All paths are hardlinks of one file; nothing is wasted.
			continue
		}

		if pair.IsSentinel() {
			report.Sentinel = true
		}
		report.Groups = append(report.Groups, group)
		report.TotalWaste += group.Waste
	}

	s.logger.Info("duplicate resolution finished",
		"groups", len(report.Groups),
		"waste", report.TotalWaste,
		"partial", report.Partial,
	)
	return report, nil
}

// buildGroup clusters path-ordered records by physical identity,
// preserving first-appearance order so the representative is the
// lexicographically first path.
func buildGroup(pair DigestPair, recs []*FileRecord) DuplicateGroup {
	group := DuplicateGroup{Digests: pair}

	index := make(map[[2]uint64]int)
	for _, rec := range recs {
		key := [2]uint64{rec.Dev, rec.Inode}
		if i, ok := index[key]; ok {
			group.Clusters[i].Paths = append(group.Clusters[i].Paths, rec.Path)
			continue
		}
		index[key] = len(group.Clusters)
		group.Clusters = append(group.Clusters, PhysicalCluster{
			Dev:   rec.Dev,
			Inode: rec.Inode,
			Size:  rec.Size,
			Paths: []string{rec.Path},
		})
	}

	for _, c := range group.Clusters[1:] {
		group.Waste += c.Size
	}
	return group
}
