package content

// Filter transforms raw body markup before it is rendered.
type Filter interface {
	Apply(body string) (string, error)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(body string) (string, error)

// Apply calls f(body).
func (f FilterFunc) Apply(body string) (string, error) {
	return f(body)
}

// Chain applies filters in order, feeding each one the previous output.
type Chain []Filter

// Apply runs every filter in the chain. The first error stops the chain.
func (c Chain) Apply(body string) (string, error) {
	var err error
	for _, f := range c {
		if body, err = f.Apply(body); err != nil {
			return "", err
		}
	}
	return body, nil
}

// Identity returns body unchanged.
var Identity = FilterFunc(func(body string) (string, error) {
	return body, nil
})
