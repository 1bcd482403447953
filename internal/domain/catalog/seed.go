package catalog

import (
	"context"
	"errors"
)

func f(v float64) *float64 { return &v }
func str(v string) *string { return &v }

// seedAnalytes is the starter catalog loaded by the seed command. Names and
// default units are Cyrillic because the primary report sources are
// Russian-language laboratories.
var seedAnalytes = []Analyte{
	{
		Code:         "glucose",
		Name:         "Глюкоза",
		DefaultUnit:  str("ммоль/л"),
		UnitCategory: str("concentration"),
		Description:  str("Основной показатель углеводного обмена"),
		ReferenceRanges: map[string]RefRange{
			"normal": {Min: f(3.9), Max: f(5.5)},
		},
	},
	{
		Code:         "hemoglobin",
		Name:         "Гемоглобин",
		DefaultUnit:  str("г/л"),
		UnitCategory: str("concentration"),
		Description:  str("Белок эритроцитов, переносящий кислород"),
		ReferenceRanges: map[string]RefRange{
			"male":   {Min: f(130), Max: f(160)},
			"female": {Min: f(120), Max: f(150)},
		},
	},
	{
		Code:         "cholesterol",
		Name:         "Холестерин общий",
		DefaultUnit:  str("ммоль/л"),
		UnitCategory: str("concentration"),
		Description:  str("Общий холестерин в крови"),
		ReferenceRanges: map[string]RefRange{
			"normal": {Max: f(5.2)},
		},
	},
	{
		Code:         "creatinine",
		Name:         "Креатинин",
		DefaultUnit:  str("мкмоль/л"),
		UnitCategory: str("concentration"),
		Description:  str("Продукт распада креатина, показатель функции почек"),
		ReferenceRanges: map[string]RefRange{
			"male":   {Min: f(62), Max: f(115)},
			"female": {Min: f(53), Max: f(97)},
		},
	},
	{
		Code:         "urea",
		Name:         "Мочевина",
		DefaultUnit:  str("ммоль/л"),
		UnitCategory: str("concentration"),
		Description:  str("Конечный продукт белкового обмена"),
		ReferenceRanges: map[string]RefRange{
			"normal": {Min: f(2.8), Max: f(7.2)},
		},
	},
	{
		Code:         "alt",
		Name:         "АЛТ (Аланинаминотрансфераза)",
		DefaultUnit:  str("Ед/л"),
		UnitCategory: str("activity"),
		Description:  str("Фермент печени"),
		ReferenceRanges: map[string]RefRange{
			"male":   {Max: f(41)},
			"female": {Max: f(31)},
		},
	},
}

// Seed inserts the starter analytes, skipping codes that already exist.
// It returns the number of analytes created.
func Seed(ctx context.Context, repo AnalyteRepository) (int, error) {
	created := 0
	for i := range seedAnalytes {
		a := seedAnalytes[i]
		_, err := repo.GetByCode(ctx, a.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, err
		}
		a.IsActive = true
		if err := repo.Create(ctx, &a); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
