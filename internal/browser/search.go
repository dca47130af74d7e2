package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Hit is one secret name matching a search, with the vault it lives in.
type Hit struct {
	Vault  string
	Secret string
}

func (b *Browser) search(ctx context.Context) (Signal, error) {
	for {
		query, err := b.Console.Ask("search secret names for (enter to go back): ")
		if err != nil || query == "" {
			return None, err
		}
		hits, err := b.collect(ctx, query)
		if err != nil {
			return None, err
		}
		if err := b.Audit.Recordf("searched secret names for '%s': %d hits", query, len(hits)); err != nil {
			return None, err
		}
		sig, again, err := b.results(ctx, query, hits)
		if err != nil || !again {
			return sig, err
		}
	}
}

// collect flattens the names matching query across all vaults. Vaults
// whose listing fails are reported and skipped.
func (b *Browser) collect(ctx context.Context, query string) ([]Hit, error) {
	var hits []Hit
	failed := 0
	for _, v := range b.vaults {
		names, ok, err := b.secretNames(ctx, v.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			failed++
			continue
		}
		for _, name := range filterNames(names, strings.TrimSpace(query)) {
			hits = append(hits, Hit{Vault: v.Name, Secret: name})
		}
	}
	if failed > 0 {
		b.Console.Warning("!", fmt.Sprintf("searched %d/%d vaults, %d failed", len(b.vaults)-failed, len(b.vaults), failed))
	}
	return hits, nil
}

// results shows hits until the operator leaves. again asks for a new search.
func (b *Browser) results(ctx context.Context, query string, hits []Hit) (Signal, bool, error) {
	con := b.Console
	for {
		con.Title(fmt.Sprintf("search results for %q", query))
		if len(hits) == 0 {
			con.Warning("!", "no secrets match")
		} else {
			rows := make([][]string, len(hits))
			for i, h := range hits {
				rows[i] = []string{strconv.Itoa(i + 1), h.Vault, h.Secret}
			}
			con.Table([]string{"#", "VAULT", "SECRET"}, rows)
		}

		choice, err := con.Ask("result [number, n new search, b back, h home]: ")
		if err != nil {
			return None, false, err
		}
		switch strings.ToLower(choice) {
		case "n":
			return None, true, nil
		case "b":
			return None, false, nil
		case "h", "q":
			return ReturnToMain, false, nil
		default:
			i, ok := b.pick(choice, len(hits))
			if !ok {
				continue
			}
			view, pos := b.openHit(hits[i], query)
			sig, err := b.detail(ctx, view, pos)
			if err != nil {
				return None, false, err
			}
			if sig == None {
				if sig, err = b.listLoop(ctx, view); err != nil {
					return None, false, err
				}
			}
			if sig != None {
				return sig, false, nil
			}
		}
	}
}

// openHit rebuilds the vault's view filtered by the search query and
// returns the hit's position in it.
func (b *Browser) openHit(hit Hit, query string) (*View, int) {
	view := NewView(hit.Vault, b.names[hit.Vault])
	view.SetFilter(query)
	return view, max(view.Index(hit.Secret), 0)
}
