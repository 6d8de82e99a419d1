package deck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Scale - допустимые значения оценки (шкала, похожая на Фибоначчи).
var Scale = []int{1, 2, 3, 5, 8, 13, 20}

var (
	ErrEmptyDeck     = errors.New("deck has no stories")
	ErrInvalidStory  = errors.New("invalid story")
	ErrInvalidPoints = errors.New("story points are not on the scale")
)

// InScale сообщает, принадлежит ли значение шкале оценок.
func InScale(v int) bool {
	for _, p := range Scale {
		if p == v {
			return true
		}
	}
	return false
}

// ScaleValues возвращает копию шкалы, чтобы вызывающий не мог ее изменить.
func ScaleValues() []int {
	out := make([]int, len(Scale))
	copy(out, Scale)
	return out
}

// Reasoning объясняет, почему истории присвоено именно такое количество очков.
type Reasoning struct {
	Effort      string `yaml:"effort" json:"effort" validate:"required"`
	Complexity  string `yaml:"complexity" json:"complexity" validate:"required"`
	Risk        string `yaml:"risk" json:"risk" validate:"required"`
	Uncertainty string `yaml:"uncertainty" json:"uncertainty" validate:"required"`
}

// Story - одна вымышленная пользовательская история с известной оценкой.
type Story struct {
	ID           int       `yaml:"id" json:"id" validate:"gt=0"`
	Text         string    `yaml:"text" json:"text" validate:"required"`
	ActualPoints int       `yaml:"actual_points" json:"actualPoints" validate:"storypoints"`
	Reasoning    Reasoning `yaml:"reasoning" json:"reasoning"`
}

// Deck - неизменяемая упорядоченная колода историй.
// После создания содержимое колоды не меняется до конца жизни процесса.
type Deck struct {
	stories []Story
	total   int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("storypoints", func(fl validator.FieldLevel) bool {
		return InScale(int(fl.Field().Int()))
	})
	return v
}

// New проверяет истории и собирает из них колоду.
// Колода отклоняется целиком при любом нарушении.
func New(stories []Story) (*Deck, error) {
	if len(stories) == 0 {
		return nil, ErrEmptyDeck
	}

	owned := make([]Story, len(stories))
	copy(owned, stories)

	total := 0
	for i, s := range owned {
		if err := validateStory(s); err != nil {
			return nil, fmt.Errorf("story #%d: %w", i+1, err)
		}
		if s.ID != i+1 {
			return nil, fmt.Errorf("story #%d: id %d does not match its position: %w", i+1, s.ID, ErrInvalidStory)
		}
		total += s.ActualPoints
	}

	return &Deck{stories: owned, total: total}, nil
}

func validateStory(s Story) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidStory, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "storypoints" {
			return fmt.Errorf("%w: %v", ErrInvalidPoints, fe.Value())
		}
		fields = append(fields, fe.Namespace())
	}
	return fmt.Errorf("%w: missing or invalid %s", ErrInvalidStory, strings.Join(fields, ", "))
}

// Len возвращает количество историй в колоде.
func (d *Deck) Len() int {
	return len(d.stories)
}

// Story возвращает историю по индексу (с нуля).
func (d *Deck) Story(i int) Story {
	return d.stories[i]
}

// Stories возвращает копию всех историй.
func (d *Deck) Stories() []Story {
	out := make([]Story, len(d.stories))
	copy(out, d.stories)
	return out
}

// TotalPoints - сумма actualPoints всей колоды.
func (d *Deck) TotalPoints() int {
	return d.total
}

// PointsUpTo - сумма actualPoints первых n историй.
func (d *Deck) PointsUpTo(n int) int {
	if n > len(d.stories) {
		n = len(d.stories)
	}
	sum := 0
	for _, s := range d.stories[:n] {
		sum += s.ActualPoints
	}
	return sum
}
