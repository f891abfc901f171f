package braid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(links <-chan string) []string {
	var out []string
	for link := range links {
		out = append(out, link)
	}
	return out
}

func TestEnumerate(t *testing.T) {
	ctx := context.Background()

	require.Equal(t, []string{
		"braid2:a", "braid2:A",
		"braid2:aa", "braid2:AA",
		"braid2:aaa", "braid2:AAA",
	}, collect(Enumerate(ctx, EnumOpts{Strands: 2, MaxCrossings: 3})))

	links := collect(Enumerate(ctx, EnumOpts{Strands: 3, MaxCrossings: 2}))
	require.Equal(t, []string{
		"braid3:a", "braid3:b", "braid3:A", "braid3:B",
		"braid3:aa", "braid3:ab", "braid3:aB", "braid3:bb", "braid3:bA", "braid3:AA", "braid3:AB", "braid3:BB",
	}, links)
	for _, link := range links {
		_, err := Parse(link)
		require.NoError(t, err, link)
	}

	// the figure-eight word appears once, as its least rotation
	count := 0
	for _, link := range collect(Enumerate(ctx, EnumOpts{Strands: 3, MaxCrossings: 4})) {
		switch link {
		case "braid3:aBaB":
			count++
		case "braid3:BaBa":
			t.Fatal("rotation emitted")
		}
	}
	require.Equal(t, 1, count)

	require.Empty(t, collect(Enumerate(ctx, EnumOpts{Strands: 1, MaxCrossings: 4})))
}

func TestEnumerateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	links := Enumerate(ctx, EnumOpts{Strands: 4, MaxCrossings: 8})
	<-links
	cancel()
	for range links {
	}
}
