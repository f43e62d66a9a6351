package suggest

// DefaultGazetteer lists the cities offered without an upstream lookup, in
// display order.
var DefaultGazetteer = []string{
	"Москва",
	"Санкт-Петербург",
	"Новосибирск",
	"Екатеринбург",
	"Казань",
	"Нижний Новгород",
	"Челябинск",
	"Самара",
	"Омск",
	"Ростов-на-Дону",
	"Уфа",
	"Красноярск",
	"Воронеж",
	"Пермь",
	"Волгоград",
	"Краснодар",
	"Саратов",
	"Тюмень",
	"Тольятти",
	"Ижевск",
	"Барнаул",
	"Владимир",
	"Оренбург",
}
