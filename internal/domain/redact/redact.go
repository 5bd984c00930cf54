package redact

// Options tunes the redactor. The zero value gives the default rule set.
type Options struct {
	// SecretLabels replaces the default label vocabulary of the secret rule.
	SecretLabels []string
	// SecretMinLength is the minimum secret value length; 0 means DefaultSecretMinLength.
	SecretMinLength int
	// RedactPaths enables the file path rules.
	RedactPaths bool
}

// Redactor applies its rules in order. It holds no mutable state and is safe
// for concurrent use.
type Redactor struct {
	rules []Rule
}

// New builds a Redactor from opts.
func New(opts Options) (*Redactor, error) {
	minLen := opts.SecretMinLength
	if minLen == 0 {
		minLen = DefaultSecretMinLength
	}
	secret, err := secretRule(opts.SecretLabels, minLen)
	if err != nil {
		return nil, err
	}
	rules := []Rule{ipv4Rule(), emailRule(), secret}
	if opts.RedactPaths {
		rules = append(rules, pathRules()...)
	}
	return &Redactor{rules: rules}, nil
}

// Default returns a Redactor with the built-in rules and no path redaction.
func Default() *Redactor {
	r, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return r
}

// Redact returns text with every rule applied in order. Text with nothing
// sensitive comes back unchanged.
func (r *Redactor) Redact(text string) string {
	out, _ := r.RedactAndCount(text)
	return out
}

// Counts maps rule name to number of replacements.
type Counts map[string]int

// Total is the number of replacements across all rules.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// RedactAndCount redacts text and reports how many replacements each rule made.
func (r *Redactor) RedactAndCount(text string) (string, Counts) {
	counts := make(Counts, len(r.rules))
	for _, rule := range r.rules {
		var n int
		text, n = rule.apply(text)
		if n > 0 {
			counts[rule.Name] += n
		}
	}
	return text, counts
}

// Rules returns the active rules in application order.
func (r *Redactor) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}
