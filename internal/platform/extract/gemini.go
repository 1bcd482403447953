package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const extractSystemPrompt = `Ты — модуль извлечения данных из лабораторных анализов.
Тебе передают файл медицинского анализа (PDF, фото или текст).
Извлеки из него все показатели и верни строго JSON следующей формы:
{
  "lab_name": "название лаборатории, если указано",
  "report_date": "дата анализа в формате YYYY-MM-DD, если указана",
  "report_type": "тип анализа (общий анализ крови, биохимия и т.п.), если указан",
  "analytes": [
    {
      "name": "название показателя точно как в документе",
      "value": "значение точно как в документе, включая знаки < и >",
      "unit": "единица измерения как в документе",
      "reference_range": "референсный диапазон как в документе",
      "flag": "отметка нормы из документа, если есть",
      "comments": "примечания к показателю, если есть"
    }
  ],
  "additional_comments": "заключение или общие комментарии, если есть"
}
Правила:
1) Ничего не вычисляй и не нормализуй: значения, единицы и диапазоны переноси дословно.
2) Не пропускай показатели; если значение нечитаемо, укажи value пустой строкой.
3) Не включай персональные данные пациента (ФИО, дату рождения, адрес, телефон).
4) Выводи только JSON. Любой текст вне JSON — ошибка.`

// Gemini extracts report content with a Gemini vision model.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

func (g *Gemini) Extract(ctx context.Context, contentType string, data []byte) (*Report, error) {
	if g.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractSystemPrompt)},
	}

	userText := "Извлеки показатели из приложенного анализа. Ответ строго JSON."
	parts := []genai.Part{genai.Text(userText)}
	if contentType == "text/plain" {
		parts = append(parts, genai.Text("Содержимое документа:\n"+string(data)))
	} else {
		parts = append(parts, &genai.Blob{MIMEType: contentType, Data: data})
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return nil, ErrEmptyResponse
		}
		return parseReport(txt)
	}
	return nil, lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
