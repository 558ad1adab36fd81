package route

// Model is any class a route or attribute can name. Only models that also
// implement Entity describe an exposable data shape.
type Model interface {
	ModelName() string
}

// Entity is the capability marker for declared entity models.
type Entity interface {
	Model
	Attributes() []Attribute
}

// PlainClass is a named class that is not an entity (Hash, a service object, ...).
type PlainClass struct {
	Name string
}

func (c PlainClass) ModelName() string { return c.Name }

// EntityModel is a declared entity with an ordered list of exposures.
type EntityModel struct {
	Name      string
	Exposures []Attribute
}

func (e *EntityModel) ModelName() string {
	if e == nil {
		return ""
	}
	return e.Name
}

func (e *EntityModel) Attributes() []Attribute {
	if e == nil {
		return nil
	}
	return e.Exposures
}

// Attribute is one exposure of an entity.
type Attribute struct {
	Name string
	As   string
	// Types holds the documented type. More than one entry declares a union.
	Types   []string
	Format  string
	Desc    string
	Default any
	Example any
	IsArray bool
	Using   Model
}

// Key returns the exposed property name.
func (a Attribute) Key() string {
	if a.As != "" {
		return a.As
	}
	return a.Name
}

// SuccessSpec is the declared success shape of a route: SingleEntity,
// EntityWithMeta or SuccessList.
type SuccessSpec interface {
	successSpec()
}

// SingleEntity is `success Entities::User`.
type SingleEntity struct {
	Model Model
}

// EntityWithMeta is `success code: 202, model: Entities::User, message: '...'`.
// Zero Code or empty Message fall back to inferred defaults.
type EntityWithMeta struct {
	Model   Model
	Code    int
	Message string
	IsArray bool
}

// SuccessList declares several success responses for one route.
type SuccessList []SuccessSpec

func (SingleEntity) successSpec()   {}
func (EntityWithMeta) successSpec() {}
func (SuccessList) successSpec()    {}

// FailureSpec is one declared failure (`[[404, 'Not found']]` or `{code:, message:}`).
type FailureSpec struct {
	Code    int
	Message string
}
