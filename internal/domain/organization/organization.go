package organization

// Organization is the read-only view of a tenant owned by the SHIELD backend.
// The client never mutates it; the editable stack lives in TechStack.
type Organization struct {
	id             int64
	name           string
	description    string
	industry       string
	techStack      []string
	stackMalformed bool
}

// Reconstruct creates an organization from backend data (for repository use).
// stackMalformed records that the stored tech stack could not be decoded and
// was replaced by an empty one.
func Reconstruct(id int64, name, description, industry string, techStack []string, stackMalformed bool) *Organization {
	stack := make([]string, len(techStack))
	copy(stack, techStack)
	return &Organization{
		id:             id,
		name:           name,
		description:    description,
		industry:       industry,
		techStack:      stack,
		stackMalformed: stackMalformed,
	}
}

func (o *Organization) ID() int64 {
	return o.id
}

func (o *Organization) Name() string {
	return o.name
}

func (o *Organization) Description() string {
	return o.description
}

func (o *Organization) Industry() string {
	return o.industry
}

// TechStack returns the stored stack as a fresh editable value.
func (o *Organization) TechStack() TechStack {
	return NewTechStack(o.techStack...)
}

// StoredTechStack returns a copy of the labels exactly as the backend stored them.
func (o *Organization) StoredTechStack() []string {
	stack := make([]string, len(o.techStack))
	copy(stack, o.techStack)
	return stack
}

func (o *Organization) StackMalformed() bool {
	return o.stackMalformed
}
