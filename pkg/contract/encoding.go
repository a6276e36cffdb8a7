package contract

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 1 << 16,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// OwnedRights maps right categories to their assigned states, in
// assignment order.
type OwnedRights map[schema.OwnedRightsType][]OwnedState

// Clone returns a copy with fresh slices.
func (r OwnedRights) Clone() OwnedRights {
	out := make(OwnedRights, len(r))
	for k, v := range r {
		out[k] = append([]OwnedState(nil), v...)
	}
	return out
}

// stateEnvelope is the tagged wire form of an OwnedState.
type stateEnvelope struct {
	_          struct{} `cbor:",toarray"`
	Kind       StateKind
	Seal       *SealDefinition
	SealHash   *types.Hash
	Value      *RevealedValue
	Commitment *types.Hash
}

func wrapState(s OwnedState) (stateEnvelope, error) {
	env := stateEnvelope{Kind: s.Kind()}
	switch st := s.(type) {
	case Revealed:
		if err := st.Seal.Validate(); err != nil {
			return env, err
		}
		env.Seal, env.Value = &st.Seal, &st.Value
	case ConfidentialSeal:
		env.SealHash, env.Value = &st.SealHash, &st.Value
	case ConfidentialAmount:
		if err := st.Seal.Validate(); err != nil {
			return env, err
		}
		env.Seal, env.Commitment = &st.Seal, &st.Commitment
	case Confidential:
		env.SealHash, env.Commitment = &st.SealHash, &st.Commitment
	default:
		return env, fmt.Errorf("unsupported owned state %T", s)
	}
	return env, nil
}

func (env stateEnvelope) unwrap() (OwnedState, error) {
	missing := func() (OwnedState, error) {
		return nil, fmt.Errorf("owned state %s: missing fields", env.Kind)
	}
	switch env.Kind {
	case KindRevealed:
		if env.Seal == nil || env.Value == nil {
			return missing()
		}
		if err := env.Seal.Validate(); err != nil {
			return nil, err
		}
		return Revealed{Seal: *env.Seal, Value: *env.Value}, nil
	case KindConfidentialSeal:
		if env.SealHash == nil || env.Value == nil {
			return missing()
		}
		return ConfidentialSeal{SealHash: *env.SealHash, Value: *env.Value}, nil
	case KindConfidentialAmount:
		if env.Seal == nil || env.Commitment == nil {
			return missing()
		}
		if err := env.Seal.Validate(); err != nil {
			return nil, err
		}
		return ConfidentialAmount{Seal: *env.Seal, Commitment: *env.Commitment}, nil
	case KindConfidential:
		if env.SealHash == nil || env.Commitment == nil {
			return missing()
		}
		return Confidential{SealHash: *env.SealHash, Commitment: *env.Commitment}, nil
	default:
		return nil, fmt.Errorf("unknown owned state kind %d", env.Kind)
	}
}

func encodeRights(r OwnedRights) (map[schema.OwnedRightsType][]stateEnvelope, error) {
	out := make(map[schema.OwnedRightsType][]stateEnvelope, len(r))
	for rt, states := range r {
		envs := make([]stateEnvelope, len(states))
		for i, s := range states {
			env, err := wrapState(s)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", rt, i, err)
			}
			envs[i] = env
		}
		out[rt] = envs
	}
	return out, nil
}

func decodeRights(in map[schema.OwnedRightsType][]stateEnvelope) (OwnedRights, error) {
	out := make(OwnedRights, len(in))
	for rt, envs := range in {
		states := make([]OwnedState, len(envs))
		for i, env := range envs {
			s, err := env.unwrap()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", rt, i, err)
			}
			states[i] = s
		}
		out[rt] = states
	}
	return out, nil
}
