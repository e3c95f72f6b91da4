package directory

// CreateGroupInput is the payload of CreateGroup. Nil optional fields must be
// omitted from the backend request.
type CreateGroupInput struct {
	DirectoryID   string
	Name          string
	Description   *string
	RoleReference *string
	Precedence    *int32
}

// NewCreateGroupInput starts a payload with the required fields.
func NewCreateGroupInput(directoryID, name string) CreateGroupInput {
	return CreateGroupInput{
		DirectoryID: directoryID,
		Name:        name,
	}
}

// WithDescription passes description through unchanged, nil included.
func (in CreateGroupInput) WithDescription(description *string) CreateGroupInput {
	if description != nil {
		d := *description
		in.Description = &d
	} else {
		in.Description = nil
	}
	return in
}

// WithRoleReference sets the role reference only when it is non-empty.
// Some directories reject an explicit empty role.
func (in CreateGroupInput) WithRoleReference(role string) CreateGroupInput {
	if role == "" {
		in.RoleReference = nil
		return in
	}
	in.RoleReference = &role
	return in
}

// WithPrecedence sets precedence only when one was supplied. A nil value
// leaves the directory default in place; zero is a real value.
func (in CreateGroupInput) WithPrecedence(precedence *int32) CreateGroupInput {
	if precedence == nil {
		in.Precedence = nil
		return in
	}
	p := *precedence
	in.Precedence = &p
	return in
}

// Fields returns the attributes the request will carry, for logging and
// reports. Omitted optional attributes are absent from the map.
func (in CreateGroupInput) Fields() map[string]any {
	fields := map[string]any{
		"directory_id": in.DirectoryID,
		"group_name":   in.Name,
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.RoleReference != nil {
		fields["role_reference"] = *in.RoleReference
	}
	if in.Precedence != nil {
		fields["precedence"] = *in.Precedence
	}
	return fields
}
