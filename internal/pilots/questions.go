package pilots

// Question is one item of the pre-flight questionnaire shown by clients.
type Question struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Questions is the questionnaire in display order. Submissions may carry ids
// outside this list; they are stored as given.
var Questions = []Question{
	{ID: "sleep", Question: "How much sleep did you get?", Type: "text", Placeholder: "e.g., 7 hours"},
	{ID: "feeling", Question: "How do you feel?", Type: "text", Placeholder: "e.g., Good, Tired, Energetic"},
	{ID: "dayQuality", Question: "How is the day going? (Out of step, or good)", Type: "select", Options: []string{"Good", "Out of step", "Normal"}},
	{ID: "stressLevel", Question: "How do you rate your stress levels (1-10)", Type: "select", Options: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
	{ID: "moodEnergyChanges", Question: "Have you noticed changes in your mood or energy levels recently?", Type: "select", Options: []string{"Yes", "No", "Unsure"}},
}
