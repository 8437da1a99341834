// Package correction provides the uniform dispatch surface over the batch
// correction methods. Each method consumes an annotated dataset plus bound
// batch/label keys and adds one corrected embedding; the heavy algorithms
// themselves are external capabilities behind the Engine interface.
package correction

import "fmt"

// Method identifies a batch correction method.
type Method uint8

const (
	// MethodHarmony runs the iterative cluster-based batch mixing
	// correction on a PCA embedding.
	MethodHarmony Method = iota + 1
	// MethodMNN runs mutual-nearest-neighbor correction across per-batch
	// groups.
	MethodMNN
	// MethodScanorama runs panorama-style integration on a PCA embedding.
	MethodScanorama
	// MethodCombat runs the ComBat linear batch adjustment.
	MethodCombat
	// MethodDESC runs the deep embedding-based clustering correction.
	MethodDESC
	// MethodSphering is an identity pass-through: sphering proper is applied
	// by the sphering package, so this slot only copies the raw features
	// into the embedding.
	MethodSphering
	// MethodSCVI fits a conditional variational model and uses its latent
	// representation as the embedding.
	MethodSCVI
)

func (m Method) String() string {
	switch m {
	case MethodHarmony:
		return "harmony"
	case MethodMNN:
		return "mnn"
	case MethodScanorama:
		return "scanorama"
	case MethodCombat:
		return "combat"
	case MethodDESC:
		return "desc"
	case MethodSphering:
		return "sphering"
	case MethodSCVI:
		return "scvi"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// ErrUnknownMethod indicates a method name outside the documented set.
type ErrUnknownMethod struct {
	Name string
}

func (e *ErrUnknownMethod) Error() string {
	return fmt.Sprintf("unknown correction method: %q", e.Name)
}

// ParseMethod parses the configuration spelling of a method name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, &ErrUnknownMethod{Name: s}
}

// Methods returns all documented methods in declaration order.
func Methods() []Method {
	return []Method{
		MethodHarmony,
		MethodMNN,
		MethodScanorama,
		MethodCombat,
		MethodDESC,
		MethodSphering,
		MethodSCVI,
	}
}

// Params carry the metadata keys bound to a correction unit ahead of
// invocation.
type Params struct {
	// BatchKey names the metadata column that identifies the batch.
	BatchKey string
	// LabelKey names the metadata column with biological labels. Only the
	// scvi method consumes it.
	LabelKey string
}

// Unit is one invocable correction method with its parameters bound.
type Unit struct {
	Method Method
	Params Params
}

// MethodMap binds batch and label keys and returns the full lookup surface
// from method to invocable unit. The map contains exactly the documented
// methods; looking up anything else is the caller's key error.
func MethodMap(batchKey, labelKey string) map[Method]Unit {
	units := make(map[Method]Unit, len(Methods()))
	for _, m := range Methods() {
		units[m] = Unit{
			Method: m,
			Params: Params{BatchKey: batchKey, LabelKey: labelKey},
		}
	}
	return units
}
