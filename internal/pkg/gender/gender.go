package gender

//Gender represents the speaker gender of an audio clip
type Gender int

const (
	// Male value
	Male Gender = iota + 1
	// Female value
	Female
	// Unrecognized - annotator can't tell
	Unrecognized
)

var (
	genderName = map[Gender]string{Male: "male", Female: "female",
		Unrecognized: "unrecognized"}
	nameGender = map[string]Gender{"male": Male, "female": Female,
		"unrecognized": Unrecognized}
)

func (g Gender) String() string {
	return genderName[g]
}

// From returns gender obj from string
func From(s string) Gender {
	return nameGender[s]
}
