package password

// Hasher adapts the package functions to the hashing capability interface
// the auth core consumes.
type Hasher struct {
	Params Params
}

func NewHasher() Hasher { return Hasher{Params: Default} }

func (h Hasher) Hash(plain string) (string, error) { return Hash(h.Params, plain) }
func (h Hasher) Verify(plain, phc string) bool     { return Verify(plain, phc) }
