package catalog

import "github.com/mikailyan/moscow-zoo-bot/internal/domain"

// TotemID names the built-in catalog.
const TotemID = "totem"

const (
	Owl      domain.Category = "owl"
	Elephant domain.Category = "elephant"
	Bear     domain.Category = "bear"
	Zebra    domain.Category = "zebra"
	Turtle   domain.Category = "turtle"
	Lemur    domain.Category = "lemur"
	Parrot   domain.Category = "parrot"
)

// TotemDefinition returns the built-in "what is your totem animal" quiz.
func TotemDefinition() Definition {
	return Definition{
		ID: TotemID,
		Categories: []domain.CategoryInfo{
			{ID: Owl, Name: "Сова"},
			{ID: Elephant, Name: "Азиатский слон"},
			{ID: Bear, Name: "Бурый медведь"},
			{ID: Zebra, Name: "Зебра Греви"},
			{ID: Turtle, Name: "Лучистая черепаха"},
			{ID: Lemur, Name: "Лемур"},
			{ID: Parrot, Name: "Благородный зелёно-красный попугай"},
		},
		Questions: []domain.Question{
			{
				Prompt: "Где вы хотели бы провести выходные?",
				Options: []domain.Option{
					{Label: "На берегу реки", Weights: w(1, 0, 0, 0, 2, 1, 0)},
					{Label: "В горах", Weights: w(0, 2, 1, 0, 0, 0, 0)},
					{Label: "В зелёном лесу", Weights: w(0, 0, 0, 1, 2, 1, 0)},
					{Label: "В городской черте", Weights: w(0, 0, 1, 2, 0, 0, 1)},
				},
			},
			{
				Prompt: "Какой ваш любимый тип еды?",
				Options: []domain.Option{
					{Label: "Растительный", Weights: w(2, 0, 0, 0, 1, 2, 1)},
					{Label: "Мясной", Weights: w(0, 2, 2, 0, 0, 0, 1)},
					{Label: "Сладкий", Weights: w(1, 0, 0, 1, 2, 1, 2)},
					{Label: "Разнообразный", Weights: w(1, 1, 1, 2, 0, 0, 1)},
				},
			},
			{
				Prompt: "С какой скоростью вы предпочитаете двигаться в жизни?",
				Options: []domain.Option{
					{Label: "Медленно и вдумчиво", Weights: w(1, 0, 2, 0, 3, 1, 0)},
					{Label: "Быстро по плану", Weights: w(0, 3, 2, 1, 0, 0, 1)},
					{Label: "Нестандартно как ветер", Weights: w(0, 0, 0, 3, 0, 2, 2)},
					{Label: "В своём темпе", Weights: w(1, 1, 1, 0, 0, 2, 1)},
				},
			},
		},
	}
}

// Totem returns the validated built-in catalog.
func Totem() *Catalog {
	c, err := New(TotemDefinition())
	if err != nil {
		panic("catalog: built-in totem catalog is invalid: " + err.Error())
	}
	return c
}

// w lists weights in owl, elephant, bear, zebra, turtle, lemur, parrot order.
func w(owl, elephant, bear, zebra, turtle, lemur, parrot int) domain.WeightVector {
	return domain.WeightVector{
		Owl:      owl,
		Elephant: elephant,
		Bear:     bear,
		Zebra:    zebra,
		Turtle:   turtle,
		Lemur:    lemur,
		Parrot:   parrot,
	}
}
