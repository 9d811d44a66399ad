package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItem_ServedAt(t *testing.T) {
	tests := []struct {
		name   string
		item   Item
		branch string
		want   bool
	}{
		{name: "everywhere", item: Item{Available: true}, branch: "downtown", want: true},
		{name: "everywhere without branch", item: Item{Available: true}, want: true},
		{name: "own branch", item: Item{BranchID: "downtown", Available: true}, branch: "downtown", want: true},
		{name: "other branch", item: Item{BranchID: "downtown", Available: true}, branch: "airport"},
		{name: "branch item without branch", item: Item{BranchID: "downtown", Available: true}},
		{name: "sold out", item: Item{}, branch: "downtown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.ServedAt(tt.branch))
		})
	}
}
