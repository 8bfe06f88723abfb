package safety

// Attribute names a legally protected personal characteristic. Decisions
// must never turn on these; any mention in model reasoning forces review.
type Attribute string

const (
	AttributeRace              Attribute = "race"
	AttributeEthnicity         Attribute = "ethnicity"
	AttributeNationalOrigin    Attribute = "national_origin"
	AttributeGender            Attribute = "gender"
	AttributeAge               Attribute = "age"
	AttributeReligion          Attribute = "religion"
	AttributeDisability        Attribute = "disability"
	AttributeSexualOrientation Attribute = "sexual_orientation"
	AttributePregnancy         Attribute = "pregnancy"
	AttributeVeteranStatus     Attribute = "veteran_status"
)

// attributeOrder fixes the scan order so triggered attributes are reported
// deterministically.
var attributeOrder = []Attribute{
	AttributeRace,
	AttributeEthnicity,
	AttributeNationalOrigin,
	AttributeGender,
	AttributeAge,
	AttributeReligion,
	AttributeDisability,
	AttributeSexualOrientation,
	AttributePregnancy,
	AttributeVeteranStatus,
}

// protectedKeywords are matched case-insensitively against reasoning text.
// The lists are frozen: changing them changes which historical decisions
// would have been flagged, so additions need governance sign-off.
var protectedKeywords = map[Attribute][]string{
	AttributeRace: {
		"race", "racial", "black", "white", "asian", "hispanic",
		"latino", "latina", "african american", "caucasian",
	},
	AttributeEthnicity: {
		"ethnicity", "ethnic", "minority", "cultural background",
	},
	AttributeNationalOrigin: {
		"country of origin", "nationality", "immigrant", "foreign",
		"native-born", "birthplace", "citizen", "citizenship",
	},
	AttributeGender: {
		"gender", "male", "female", "man", "woman", "sex",
		"transgender", "non-binary",
	},
	AttributeAge: {
		"age", "elderly", "senior", "young", "older worker",
		"retirement age", "generational",
	},
	AttributeReligion: {
		"religion", "religious", "christian", "muslim", "jewish",
		"hindu", "buddhist", "atheist", "faith",
	},
	AttributeDisability: {
		"disability", "disabled", "handicap", "impairment",
		"medical condition", "accommodation",
	},
	AttributeSexualOrientation: {
		"sexual orientation", "gay", "lesbian", "bisexual",
		"lgbtq", "homosexual", "heterosexual",
	},
	AttributePregnancy: {
		"pregnancy", "pregnant", "maternity", "childbirth",
		"expecting", "parental leave",
	},
	AttributeVeteranStatus: {
		"veteran", "military service", "armed forces", "discharge",
	},
}

// highStakesTypes carry significant impact on the applicant and always
// record a high-stakes trigger.
var highStakesTypes = map[string]bool{
	"immigration_deportation": true,
	"asylum_decision":         true,
	"benefit_termination":     true,
	"housing_denial":          true,
	"loan_denial":             true,
	"employment_termination":  true,
}

// criticalTypes force mandatory human review outright.
var criticalTypes = map[string]bool{
	"immigration_deportation": true,
	"asylum_decision":         true,
	"benefit_termination":     true,
}

// deportationTypes always record the dedicated life-altering trigger.
var deportationTypes = map[string]bool{
	"immigration_deportation": true,
	"visa_denial":             true,
}

// requiredFields lists the input fields a decision type cannot be safely
// evaluated without. Unknown types require nothing.
var requiredFields = map[string][]string{
	"unemployment_benefits": {
		"employment_duration_months",
		"termination_reason",
		"available_for_work",
	},
	"immigration_deportation": {
		"visa_status",
		"entry_date",
		"criminal_record",
		"family_ties",
	},
	"loan_approval": {
		"credit_score",
		"income",
		"debt_to_income_ratio",
	},
}
