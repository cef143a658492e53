package llm

// Jurisdiction describes the regulatory frame a SAR narrative is written
// for: the receiving body, legal terminology, and expected sections.
type Jurisdiction struct {
	Code           string
	RegulatoryBody string
	CurrencySymbol string
	IdentityName   string
	LegalFramework string
	ReportingForm  string
	Sections       []string
}

// jurisdictions is the static context table. IN is the default; the
// others mirror the corresponding national regimes.
var jurisdictions = map[string]Jurisdiction{
	"IN": {
		Code:           "IN",
		RegulatoryBody: "Financial Intelligence Unit (FIU-IND)",
		CurrencySymbol: "₹",
		IdentityName:   "Aadhaar/PAN",
		LegalFramework: "Money Laundering (Prevention) Act (PMLA)",
		ReportingForm:  "STR (Suspicious Transaction Report)",
		Sections: []string{
			"Subject Information",
			"Suspicious Activity Description",
			"Supporting Evidence",
			"Analyst Assessment",
		},
	},
	"US": {
		Code:           "US",
		RegulatoryBody: "Financial Crimes Enforcement Network (FinCEN)",
		CurrencySymbol: "$",
		IdentityName:   "SSN/EIN",
		LegalFramework: "Bank Secrecy Act (BSA) / USA PATRIOT Act",
		ReportingForm:  "FinCEN SAR Form",
		Sections: []string{
			"Subject Information",
			"Suspicious Activity Information",
			"Narrative",
			"Filing Institution Contact",
		},
	},
	"UK": {
		Code:           "UK",
		RegulatoryBody: "National Crime Agency (NCA)",
		CurrencySymbol: "£",
		IdentityName:   "NI Number",
		LegalFramework: "Proceeds of Crime Act 2002 (POCA)",
		ReportingForm:  "SAR (Defence / Consent / Information)",
		Sections: []string{
			"Subject Details",
			"Reason for Suspicion",
			"Transaction Details",
			"Reporting Officer Assessment",
		},
	},
	"EU": {
		Code:           "EU",
		RegulatoryBody: "EU Anti-Money Laundering Authority (AMLA)",
		CurrencySymbol: "€",
		IdentityName:   "National ID / Passport",
		LegalFramework: "EU 6th Anti-Money Laundering Directive (6AMLD)",
		ReportingForm:  "STR (Suspicious Transaction Report)",
		Sections: []string{
			"Subject Identification",
			"Suspicious Activity Description",
			"Transaction Analysis",
			"Risk Assessment and Recommendation",
		},
	},
}

// JurisdictionFor returns the context for a jurisdiction code, falling
// back to IN when the code is unknown.
func JurisdictionFor(code string) Jurisdiction {
	if j, ok := jurisdictions[code]; ok {
		return j
	}
	return jurisdictions["IN"]
}
