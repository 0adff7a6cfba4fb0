package services

import (
	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/jsonutil"
)

// patcher applies Optional fields onto a loaded record and remembers whether
// anything was present in the patch.
type patcher struct {
	touched bool
	invalid map[string]string
}

func setField[T any](p *patcher, field string, o jsonutil.Optional[T], dst *T) {
	set, err := o.ApplyRequired(dst)
	if err != nil {
		if p.invalid == nil {
			p.invalid = make(map[string]string)
		}
		p.invalid[field] = "cannot be null"
		return
	}
	p.touched = p.touched || set
}

func setNullable[T any](p *patcher, o jsonutil.Optional[T], dst **T) {
	p.touched = o.ApplyNullable(dst) || p.touched
}

func (p *patcher) err() error {
	if len(p.invalid) == 0 {
		return nil
	}
	return &apperrors.ValidationError{Fields: p.invalid}
}
