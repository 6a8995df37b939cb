package model

// swagger:model Test
type Test struct {
	BaseModel
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Questions   []Question `gorm:"foreignKey:TestID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// swagger:model Question
type Question struct {
	BaseModel
	TestID  uint     `gorm:"index;not null" json:"test_id"`
	Text    string   `gorm:"type:text;not null" json:"text"`
	Order   uint     `gorm:"column:sort_order;not null;default:1" json:"order"`
	Choices []Choice `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"choices,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// Less reports whether q sorts before o in test order: by Order, then by ID.
func (q Question) Less(o Question) bool {
	if q.Order != o.Order {
		return q.Order < o.Order
	}
	return q.ID < o.ID
}

// swagger:model Choice
type Choice struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Text       string `gorm:"size:300;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null" json:"is_correct"`
}

func (Choice) TableName() string {
	return "choices"
}
