package salesforce

import (
	"context"

	"github.com/rotisserie/eris"
)

// systemFields are maintained by Salesforce and never mapped from a source.
var systemFields = map[string]bool{
	"Id":               true,
	"IsDeleted":        true,
	"CreatedById":      true,
	"CreatedDate":      true,
	"LastModifiedById": true,
	"LastModifiedDate": true,
	"SystemModstamp":   true,
}

// Writable returns the fields of desc a migration can populate, in
// describe order.
func Writable(desc *SObjectDescription) []SObjectField {
	var out []SObjectField
	for _, f := range desc.Fields {
		if systemFields[f.Name] || (!f.Createable && !f.Updateable) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FieldNames describes object and returns the names of its writable fields.
func FieldNames(ctx context.Context, c Client, object string) ([]string, error) {
	desc, err := c.DescribeSObject(ctx, object)
	if err != nil {
		return nil, err
	}
	fields := Writable(desc)
	if len(fields) == 0 {
		return nil, eris.Errorf("sf: %s has no writable fields", object)
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

// RequiredFieldNames returns the writable fields that must be set on create.
func RequiredFieldNames(desc *SObjectDescription) []string {
	var names []string
	for _, f := range Writable(desc) {
		if f.Required() {
			names = append(names, f.Name)
		}
	}
	return names
}
