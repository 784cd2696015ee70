package service

import (
	"fmt"
	"iter"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

// TransactionPackage is what routing is allowed to see of a sale.
type TransactionPackage struct {
	Franchise models.Franchise
}

// TransactionRouter yields acquiring processors in order of preference.
// Candidates are produced lazily; a consumer that stops early never causes
// later candidates to be built.
type TransactionRouter interface {
	Candidates(pkg TransactionPackage) iter.Seq[AcquiringProcessor]
}

// RoutingTable maps a franchise to its ordered networks. Fallback applies to
// franchises without a route.
type RoutingTable struct {
	Routes   map[models.Franchise][]models.AcquiringNetwork
	Fallback []models.AcquiringNetwork
}

func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		Routes: map[models.Franchise][]models.AcquiringNetwork{
			models.FranchiseVisa:       {models.NetworkCKO, models.NetworkCBK},
			models.FranchiseMasterCard: {models.NetworkCBK},
		},
		Fallback: []models.AcquiringNetwork{models.NetworkCKO, models.NetworkCBK},
	}
}

func (t RoutingTable) networksFor(f models.Franchise) []models.AcquiringNetwork {
	if networks, ok := t.Routes[f]; ok {
		return networks
	}
	return t.Fallback
}

const fallbackRouteKey = "*"

// ParseRoutingTable parses "VISA=CKO,CBK;MASTER_CARD=CBK;*=CKO,CBK".
// An empty definition yields DefaultRoutingTable.
func ParseRoutingTable(def string) (RoutingTable, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return DefaultRoutingTable(), nil
	}

	table := RoutingTable{Routes: make(map[models.Franchise][]models.AcquiringNetwork)}
	for _, entry := range strings.Split(def, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return RoutingTable{}, fmt.Errorf("routing entry %q: missing '='", entry)
		}
		key = strings.ToUpper(strings.TrimSpace(key))

		var networks []models.AcquiringNetwork
		for _, raw := range strings.Split(value, ",") {
			network := models.AcquiringNetwork(strings.ToUpper(strings.TrimSpace(raw)))
			switch network {
			case models.NetworkCKO, models.NetworkCBK:
				networks = append(networks, network)
			case "":
			default:
				return RoutingTable{}, fmt.Errorf("routing entry %q: unknown network %q", entry, network)
			}
		}

		switch franchise := models.Franchise(key); franchise {
		case fallbackRouteKey:
			table.Fallback = networks
		case models.FranchiseVisa, models.FranchiseMasterCard, models.FranchiseUnrecognized:
			table.Routes[franchise] = networks
		default:
			return RoutingTable{}, fmt.Errorf("routing entry %q: unknown franchise %q", entry, key)
		}
	}
	return table, nil
}

// FranchiseRouter routes by card franchise over a fixed set of processors.
type FranchiseRouter struct {
	table      RoutingTable
	processors map[models.AcquiringNetwork]AcquiringProcessor
}

func NewFranchiseRouter(table RoutingTable, processors map[models.AcquiringNetwork]AcquiringProcessor) *FranchiseRouter {
	return &FranchiseRouter{table: table, processors: processors}
}

func (r *FranchiseRouter) Candidates(pkg TransactionPackage) iter.Seq[AcquiringProcessor] {
	networks := r.table.networksFor(pkg.Franchise)
	return func(yield func(AcquiringProcessor) bool) {
		for _, network := range networks {
			processor, ok := r.processors[network]
			if !ok {
				log.Warn().
					Str("network", string(network)).
					Str("franchise", string(pkg.Franchise)).
					Msg("Acquiring processor not registered")
				continue
			}
			if !yield(processor) {
				return
			}
		}
	}
}
