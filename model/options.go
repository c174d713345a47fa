package model

// Options configures a TypeModel's behavior across every type it manages.
// Construct one with NewOptions and the With* functions, or use
// DefaultOptions.
type Options struct {
	AutoAddMissingTypes       bool
	AutoCompile               bool
	AllowPackedEncodingAtRoot bool
	InternStrings             bool
	MaxDepth                  int
	RejectUnknownFields       bool
	StrictEnums               bool
	Deterministic             bool
}

// DefaultOptions returns the baseline configuration: auto-add and
// auto-compile enabled (so a type model behaves usefully the first time a
// type is seen), unknown fields skipped rather than rejected, and a
// conservative recursion depth.
func DefaultOptions() Options {
	return Options{
		AutoAddMissingTypes: true,
		AutoCompile:         true,
		MaxDepth:            64,
	}
}

// Option mutates an Options value; pass a list to NewOptions.
type Option func(*Options)

// NewOptions builds an Options starting from DefaultOptions and applying
// opts in order.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAutoAddMissingTypes controls whether referencing an unregistered
// message type (as a Serialize/Deserialize root or as a field's declared Go
// type) implicitly adds it, versus failing with errs.UnknownType. Enum types
// are not affected: an unregistered enum type is always treated as
// pass-through.
func WithAutoAddMissingTypes(v bool) Option { return func(o *Options) { o.AutoAddMissingTypes = v } }

// WithAutoCompile controls whether TypeModel.Add compiles a type
// immediately versus deferring to an explicit Compile call.
func WithAutoCompile(v bool) Option { return func(o *Options) { o.AutoCompile = v } }

// WithAllowPackedEncodingAtRoot sets Options.AllowPackedEncodingAtRoot
// (false by default). The value is stored but not read: Serialize and
// Deserialize only accept a struct (or pointer to one) at the root, so a
// bare repeated scalar cannot be written or read as the root value, and
// list fields are packed or not according to their own Packed flag.
func WithAllowPackedEncodingAtRoot(v bool) Option {
	return func(o *Options) { o.AllowPackedEncodingAtRoot = v }
}

// WithStringInterning enables the reader's string-interning pool for every
// Deserialize/DeepClone call made through this model.
func WithStringInterning(v bool) Option { return func(o *Options) { o.InternStrings = v } }

// WithMaxDepth overrides the default sub-item nesting guard.
func WithMaxDepth(n int) Option { return func(o *Options) { o.MaxDepth = n } }

// WithRejectUnknownFields makes Deserialize fail instead of skipping an
// unrecognized field tag.
func WithRejectUnknownFields(v bool) Option { return func(o *Options) { o.RejectUnknownFields = v } }

// WithStrictEnums makes an enum field with a closed (non-pass-through)
// domain fail on an unmapped wire value instead of decoding it as 0.
func WithStrictEnums(v bool) Option { return func(o *Options) { o.StrictEnums = v } }

// WithDeterministic makes Serialize sort map fields by key before writing,
// at the cost of an allocation and a sort per map field.
func WithDeterministic(v bool) Option { return func(o *Options) { o.Deterministic = v } }
