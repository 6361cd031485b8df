package filters

import (
	"testing"

	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
)

func testFactory() *Factory {
	return NewFactory(nil, nil, map[entity.Type]string{
		entity.Company: "companies",
		entity.Contact: "contacts",
	})
}

func TestFactory_ResolutionOrder(t *testing.T) {
	f := testFactory()

	tests := []struct {
		name string
		def  filterdef.Definition
		want string
	}{
		{
			name: "elasticsearch source overrides type tag",
			def:  filterdef.Definition{ValueSource: filterdef.SourceElasticsearch, Type: filterdef.TypeText},
			want: "*filters.ElasticHandler",
		},
		{
			name: "exists mode overrides type tag",
			def: filterdef.Definition{
				ValueSource: filterdef.SourcePredefined,
				Type:        filterdef.TypeBoolean,
				Settings:    filterdef.Settings{Mode: filterdef.ModeExists},
			},
			want: "*filters.ElasticHandler",
		},
		{
			name: "text type",
			def:  filterdef.Definition{ValueSource: filterdef.SourcePredefined, Type: filterdef.TypeText},
			want: "*filters.TextHandler",
		},
		{
			name: "keyword type",
			def:  filterdef.Definition{ValueSource: filterdef.SourcePredefined, Type: filterdef.TypeKeyword},
			want: "*filters.TextHandler",
		},
		{
			name: "range type",
			def:  filterdef.Definition{ValueSource: filterdef.SourceDirect, Type: filterdef.TypeRange},
			want: "*filters.RangeHandler",
		},
		{
			name: "date type",
			def:  filterdef.Definition{ValueSource: filterdef.SourceDirect, Type: filterdef.TypeDate},
			want: "*filters.RangeHandler",
		},
		{
			name: "boolean type",
			def:  filterdef.Definition{ValueSource: filterdef.SourcePredefined, Type: filterdef.TypeBoolean},
			want: "*filters.BooleanHandler",
		},
		{
			name: "direct type",
			def:  filterdef.Definition{ValueSource: filterdef.SourceDirect, Type: filterdef.TypeDirect},
			want: "*filters.DirectHandler",
		},
		{
			name: "unknown type falls back to elastic",
			def:  filterdef.Definition{ValueSource: filterdef.SourcePredefined, Type: "mystery"},
			want: "*filters.ElasticHandler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := f.Make(tt.def)
			if got := typeName(h); got != tt.want {
				t.Errorf("Make() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(h Handler) string {
	switch h.(type) {
	case *ElasticHandler:
		return "*filters.ElasticHandler"
	case *TextHandler:
		return "*filters.TextHandler"
	case *RangeHandler:
		return "*filters.RangeHandler"
	case *BooleanHandler:
		return "*filters.BooleanHandler"
	case *DirectHandler:
		return "*filters.DirectHandler"
	default:
		return "unknown"
	}
}
