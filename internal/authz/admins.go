package authz

import (
	"strings"

	"github.com/ignatzorin/escrow-ledger/internal/domain/valueobject"
)

// AdminChecker решает, может ли участник выполнять административные операции.
type AdminChecker interface {
	IsAdmin(party valueobject.PartyID) bool
}

// AdminSet: фиксированный список администраторов из конфигурации.
type AdminSet struct {
	ids map[valueobject.PartyID]struct{}
}

func NewAdminSet(ids []string) *AdminSet {
	s := &AdminSet{ids: make(map[valueobject.PartyID]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		s.ids[valueobject.PartyID(id)] = struct{}{}
	}
	return s
}

func (s *AdminSet) IsAdmin(party valueobject.PartyID) bool {
	if s == nil || party == "" {
		return false
	}
	_, ok := s.ids[party]
	return ok
}

func (s *AdminSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}
