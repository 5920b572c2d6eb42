package lexicon

var (
	emailConcept = Concept{
		Name:     "email",
		Variants: []string{"email", "email_address", "emailaddress", "e-mail", "mail", "primary_email", "work_email"},
		Category: CategoryContact,
	}
	phoneConcept = Concept{
		Name:     "phone",
		Variants: []string{"phone", "phone_number", "phonenumber", "telephone", "tel", "work_phone", "business_phone", "office_phone"},
		Category: CategoryContact,
	}
	mobileConcept = Concept{
		Name:     "mobile_phone",
		Variants: []string{"mobilephone", "mobile", "mobile_phone", "cell", "cell_phone", "cellphone"},
		Category: CategoryContact,
	}
	websiteConcept = Concept{
		Name:     "website",
		Variants: []string{"website", "web_site", "url", "homepage", "domain", "company_website", "site"},
		Category: CategoryAccount,
	}
	streetConcept = Concept{
		Name:     "street",
		Variants: []string{"street", "address", "address1", "address_line_1", "street_address", "mailing_street", "billing_street"},
		Category: CategoryAddress,
	}
	cityConcept = Concept{
		Name:     "city",
		Variants: []string{"city", "town", "locality", "mailing_city", "billing_city"},
		Category: CategoryAddress,
	}
	stateConcept = Concept{
		Name:     "state",
		Variants: []string{"state", "province", "region", "state_code", "mailing_state", "billing_state"},
		Category: CategoryAddress,
	}
	postalConcept = Concept{
		Name:     "postal_code",
		Variants: []string{"postalcode", "postal_code", "zip", "zipcode", "zip_code", "postcode", "mailing_postal_code", "billing_postal_code"},
		Category: CategoryAddress,
	}
	countryConcept = Concept{
		Name:     "country",
		Variants: []string{"country", "country_code", "nation", "mailing_country", "billing_country"},
		Category: CategoryAddress,
	}
	ownerConcept = Concept{
		Name:     "owner",
		Variants: []string{"ownerid", "owner", "owner_id", "assigned_to", "account_owner", "sales_rep"},
		Category: CategorySystem,
	}
	externalIDConcept = Concept{
		Name:     "external_id",
		Variants: []string{"external_id", "externalid", "legacy_id", "source_id", "record_id"},
		Category: CategorySystem,
	}
	descriptionConcept = Concept{
		Name:     "description",
		Variants: []string{"description", "notes", "comments", "details", "summary"},
		Category: CategorySystem,
	}
)

// Default returns the built-in lexicon covering contacts, accounts,
// opportunities and leads.
func Default() *Lexicon {
	return New(map[string][]Concept{
		"contacts": {
			emailConcept,
			phoneConcept,
			mobileConcept,
			{
				Name:     "first_name",
				Variants: []string{"firstname", "first_name", "first", "fname", "given_name", "forename"},
				Category: CategoryContact,
			},
			{
				Name:     "last_name",
				Variants: []string{"lastname", "last_name", "last", "lname", "surname", "family_name"},
				Required: true,
				Category: CategoryContact,
			},
			{
				Name:     "title",
				Variants: []string{"title", "job_title", "jobtitle", "position", "role"},
				Category: CategoryContact,
			},
			{
				Name:     "account",
				Variants: []string{"accountid", "account", "account_id", "company", "company_name", "organization", "employer"},
				Category: CategoryAccount,
			},
			{
				Name:     "birthdate",
				Variants: []string{"birthdate", "birth_date", "date_of_birth", "dob", "birthday"},
				Category: CategoryContact,
			},
			streetConcept,
			cityConcept,
			stateConcept,
			postalConcept,
			countryConcept,
			ownerConcept,
			externalIDConcept,
			descriptionConcept,
		},
		"accounts": {
			{
				Name:     "name",
				Variants: []string{"name", "account_name", "accountname", "company", "company_name", "organization", "business_name"},
				Required: true,
				Category: CategoryAccount,
			},
			websiteConcept,
			phoneConcept,
			{
				Name:     "industry",
				Variants: []string{"industry", "sector", "vertical", "business_type"},
				Category: CategoryAccount,
			},
			{
				Name:     "annual_revenue",
				Variants: []string{"annualrevenue", "annual_revenue", "revenue", "yearly_revenue", "sales"},
				Category: CategoryAccount,
			},
			{
				Name:     "employees",
				Variants: []string{"numberofemployees", "number_of_employees", "employees", "employee_count", "headcount", "staff"},
				Category: CategoryAccount,
			},
			{
				Name:     "account_type",
				Variants: []string{"type", "account_type", "customer_type", "segment"},
				Category: CategoryAccount,
			},
			streetConcept,
			cityConcept,
			stateConcept,
			postalConcept,
			countryConcept,
			ownerConcept,
			externalIDConcept,
			descriptionConcept,
		},
		"opportunities": {
			{
				Name:     "name",
				Variants: []string{"name", "opportunity_name", "opportunityname", "deal_name", "dealname", "deal"},
				Required: true,
				Category: CategoryOpportunity,
			},
			{
				Name:     "amount",
				Variants: []string{"amount", "deal_value", "deal_amount", "value", "opportunity_amount"},
				Category: CategoryOpportunity,
			},
			{
				Name:     "stage",
				Variants: []string{"stagename", "stage", "stage_name", "deal_stage", "pipeline_stage", "status"},
				Required: true,
				Category: CategoryOpportunity,
			},
			{
				Name:     "close_date",
				Variants: []string{"closedate", "close_date", "expected_close", "expected_close_date", "close"},
				Required: true,
				Category: CategoryOpportunity,
			},
			{
				Name:     "probability",
				Variants: []string{"probability", "win_probability", "likelihood", "confidence"},
				Category: CategoryOpportunity,
			},
			{
				Name:     "account",
				Variants: []string{"accountid", "account", "account_id", "company", "account_name"},
				Category: CategoryAccount,
			},
			{
				Name:     "lead_source",
				Variants: []string{"leadsource", "lead_source", "source", "origin", "channel"},
				Category: CategoryOpportunity,
			},
			ownerConcept,
			externalIDConcept,
			descriptionConcept,
		},
		"leads": {
			emailConcept,
			phoneConcept,
			mobileConcept,
			{
				Name:     "first_name",
				Variants: []string{"firstname", "first_name", "first", "fname", "given_name"},
				Category: CategoryContact,
			},
			{
				Name:     "last_name",
				Variants: []string{"lastname", "last_name", "last", "lname", "surname"},
				Required: true,
				Category: CategoryContact,
			},
			{
				Name:     "company",
				Variants: []string{"company", "company_name", "organization", "account_name", "employer"},
				Required: true,
				Category: CategoryAccount,
			},
			{
				Name:     "lead_status",
				Variants: []string{"status", "lead_status", "leadstatus", "stage"},
				Category: CategorySystem,
			},
			{
				Name:     "lead_source",
				Variants: []string{"leadsource", "lead_source", "source", "origin", "channel"},
				Category: CategorySystem,
			},
			websiteConcept,
			streetConcept,
			cityConcept,
			stateConcept,
			postalConcept,
			countryConcept,
			ownerConcept,
		},
	})
}
