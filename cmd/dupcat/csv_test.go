package main

import (
	"bytes"
	"testing"

	"dupcat/internal/dupcat"
)

func TestWriteCSV(t *testing.T) {
	report := &dupcat.DuplicateReport{
		Groups: []dupcat.DuplicateGroup{
			{
				Clusters: []dupcat.PhysicalCluster{
					{Dev: 1, Inode: 10, Size: 100, Paths: []string{"/data/a", "/data/a-link"}},
					{Dev: 1, Inode: 11, Size: 100, Paths: []string{"/data/b"}},
				},
				Waste: 100,
			},
			{
				Clusters: []dupcat.PhysicalCluster{
					{Dev: 1, Inode: 12, Size: 50, Paths: []string{"/data/c"}},
					{Dev: 1, Inode: 13, Size: 50, Paths: []string{"/data/d"}},
				},
				Waste: 50,
			},
		},
		TotalWaste: 150,
	}

	t.Run("one row per cluster", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeCSV(&buf, report, false); err != nil {
			t.Fatalf("writeCSV() error = %v", err)
		}

		// The hardlinked alias /data/a-link shares its cluster's row,
		// so summing the size column per group counts each physical
		// file exactly once.
		want := "1,100,/data/a\n" +
			"1,100,/data/b\n" +
			"2,50,/data/c\n" +
			"2,50,/data/d\n" +
			"total,150,\n"
		if got := buf.String(); got != want {
			t.Errorf("writeCSV() output =\n%q\nwant:\n%q", got, want)
		}
	})

	t.Run("no-total suppresses the trailing line", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeCSV(&buf, report, true); err != nil {
			t.Fatalf("writeCSV() error = %v", err)
		}

		want := "1,100,/data/a\n" +
			"1,100,/data/b\n" +
			"2,50,/data/c\n" +
			"2,50,/data/d\n"
		if got := buf.String(); got != want {
			t.Errorf("writeCSV() output =\n%q\nwant:\n%q", got, want)
		}
	})
}
