package filters

import (
	"github.com/prospectio/prospect/internal/domain/entity"
	"github.com/prospectio/prospect/internal/domain/filterdef"
)

// Factory resolves a filter definition to its handler variant. The dispatch
// table lives here and nowhere else.
type Factory struct {
	engine   Engine
	registry Registry
	indexes  map[entity.Type]string
}

// NewFactory creates a handler factory. indexes maps each entity type to its
// engine index name.
func NewFactory(engine Engine, registry Registry, indexes map[entity.Type]string) *Factory {
	return &Factory{engine: engine, registry: registry, indexes: indexes}
}

// Make resolves the handler for a definition. Resolution order matters:
// value source and exists mode are structural overrides that take precedence
// over the nominal type tag.
func (f *Factory) Make(def filterdef.Definition) Handler {
	if def.ValueSource == filterdef.SourceElasticsearch {
		return NewElasticHandler(def, f.engine, f.indexes)
	}
	if def.IsExistsMode() {
		return NewElasticHandler(def, f.engine, f.indexes)
	}

	switch def.Type {
	case filterdef.TypeText, filterdef.TypeKeyword:
		return NewTextHandler(def, f.registry)
	case filterdef.TypeRange, filterdef.TypeDate:
		return NewRangeHandler(def)
	case filterdef.TypeBoolean:
		return NewBooleanHandler(def)
	case filterdef.TypeDirect:
		return NewDirectHandler(def)
	default:
		return NewElasticHandler(def, f.engine, f.indexes)
	}
}
