package menulens

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
)

const MockName = "mock"

// MockMenuText is the canned OCR text returned by the offline client.
const MockMenuText = `凉菜
花生豆腐汤 ——— 8元
鱼香肉丝套餐 ——— 8元
宫保鸡丁套餐 ——— 8元

汤类
花蛤豆腐汤 ——— 8元
鱼头豆腐汤 ——— 12元
干贝冬瓜汤 ——— 15元
七彩牛肉羹 ——— 15元

单品菜
川味回锅肉 ——— 10元
鱼香肉丝 ——— 10元
青椒炒肉丝 ——— 10元
剁椒鱼头 ——— 20元`

var mockDishes = []MenuItem{
	{Chinese: "花生豆腐汤", Pinyin: "huā shēng dòu fu tāng", English: "Peanut Tofu Soup", Price: "8元",
		Ingredients: []string{"peanuts", "tofu", "broth"}, PorkAlert: "No", BeefAlert: "No",
		SpicinessLevel: "0/5 - Not spicy", HealthCategory: "Healthy - Low Oil", RegionalOrigin: "Fujian",
		DietaryInfo: []string{"vegetarian", "contains nuts"}},
	{Chinese: "鱼香肉丝套餐", Pinyin: "yú xiāng ròu sī tào cān", English: "Fish-Flavored Shredded Pork Set", Price: "8元",
		Ingredients: []string{"pork", "wood ear mushroom", "bamboo shoots", "chili"}, PorkAlert: "Yes - shredded pork", BeefAlert: "No",
		SpicinessLevel: "2/5 - Mild", HealthCategory: "Unhealthy - Medium Oil", RegionalOrigin: "Sichuan"},
	{Chinese: "宫保鸡丁套餐", Pinyin: "gōng bǎo jī dīng tào cān", English: "Kung Pao Chicken Set", Price: "8元",
		Ingredients: []string{"chicken", "peanuts", "dried chili"}, PorkAlert: "No", BeefAlert: "No",
		SpicinessLevel: "3/5 - Medium", HealthCategory: "Unhealthy - Medium Oil", RegionalOrigin: "Sichuan",
		DietaryInfo: []string{"contains nuts"}},
	{Chinese: "花蛤豆腐汤", Pinyin: "huā gé dòu fu tāng", English: "Clam Tofu Soup", Price: "8元",
		Ingredients: []string{"clams", "tofu", "ginger"}, PorkAlert: "No", BeefAlert: "No",
		SpicinessLevel: "0/5 - Not spicy", HealthCategory: "Healthy - Low Oil", RegionalOrigin: "Fujian"},
	{Chinese: "鱼头豆腐汤", Pinyin: "yú tóu dòu fu tāng", English: "Fish Head Tofu Soup", Price: "12元",
		Ingredients: []string{"fish head", "tofu", "scallion"}, PorkAlert: "No", BeefAlert: "No",
		SpicinessLevel: "0/5 - Not spicy", HealthCategory: "Healthy - Low Oil", RegionalOrigin: "Zhejiang"},
	{Chinese: "干贝冬瓜汤", Pinyin: "gān bèi dōng guā tāng", English: "Dried Scallop Winter Melon Soup", Price: "15元",
		Ingredients: []string{"dried scallops", "winter melon"}, PorkAlert: "No", BeefAlert: "No",
		SpicinessLevel: "0/5 - Not spicy", HealthCategory: "Healthy - Low Oil", RegionalOrigin: "Guangdong"},
	{Chinese: "七彩牛肉羹", Pinyin: "qī cǎi niú ròu gēng", English: "Seven-Color Beef Thick Soup", Price: "15元",
		Ingredients: []string{"minced beef", "egg white", "mushrooms", "corn"}, PorkAlert: "No", BeefAlert: "Yes - minced beef",
		SpicinessLevel: "0/5 - Not spicy", HealthCategory: "Healthy - Low Oil", RegionalOrigin: "Guangdong"},
	{Chinese: "川味回锅肉", Pinyin: "chuān wèi huí guō ròu", English: "Sichuan Twice-Cooked Pork", Price: "10元",
		Ingredients: []string{"pork belly", "leeks", "doubanjiang"}, PorkAlert: "Yes - pork belly", BeefAlert: "No",
		SpicinessLevel: "3/5 - Medium", HealthCategory: "Unhealthy - High Oil", RegionalOrigin: "Sichuan"},
	{Chinese: "鱼香肉丝", Pinyin: "yú xiāng ròu sī", English: "Fish-Flavored Shredded Pork", Price: "10元",
		Ingredients: []string{"pork", "wood ear mushroom", "carrot"}, PorkAlert: "Yes - shredded pork", BeefAlert: "No",
		SpicinessLevel: "2/5 - Mild", HealthCategory: "Unhealthy - Medium Oil", RegionalOrigin: "Sichuan"},
	{Chinese: "青椒炒肉丝", Pinyin: "qīng jiāo chǎo ròu sī", English: "Stir-Fried Pork with Green Pepper", Price: "10元",
		Ingredients: []string{"pork", "green pepper"}, PorkAlert: "Yes - shredded pork", BeefAlert: "No",
		SpicinessLevel: "1/5 - Slight", HealthCategory: "Unhealthy - Medium Oil", RegionalOrigin: "Hunan"},
	{Chinese: "剁椒鱼头", Pinyin: "duò jiāo yú tóu", English: "Steamed Fish Head with Chopped Chili", Price: "20元",
		Ingredients: []string{"fish head", "pickled chili", "garlic"}, PorkAlert: "No", BeefAlert: "No",
		SpicinessLevel: "4/5 - Hot", HealthCategory: "Healthy - Low Oil", RegionalOrigin: "Hunan"},
}

// MockClient is an offline Recognizer answering every mode from a fixed
// sample menu. Responses are deterministic for a given request.
type MockClient struct {
	// Err, when set, is returned instead of a response.
	Err error
	// Responses overrides the canned reply per mode.
	Responses map[Mode]string

	calls atomic.Int64
}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name returns the client identifier.
func (m *MockClient) Name() string { return MockName }

// Calls reports how many requests reached the mock.
func (m *MockClient) Calls() int { return int(m.calls.Load()) }

// Recognize returns the canned reply for req.Mode.
func (m *MockClient) Recognize(ctx context.Context, req Request) (string, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", wrapTransport(MockName, err)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if r, ok := m.Responses[req.Mode]; ok {
		return r, nil
	}
	return mockReply(req)
}

func mockReply(req Request) (string, error) {
	switch req.Mode {
	case ModeOCR:
		return MockMenuText, nil
	case ModeCountOnly:
		return fmt.Sprintf(`{"total_dishes": %d}`, len(mockDishes)), nil
	case ModeWindowed:
		w := req.Window
		if w.Start < 1 {
			w = WindowFor(1, DefaultItemsPerBatch)
		}
		var items []MenuItem
		if w.Start <= len(mockDishes) {
			items = mockDishes[w.Start-1 : min(w.End, len(mockDishes))]
		}
		return marshalMock(map[string]any{
			"menu_items":            nonNil(items),
			"has_more":              w.End < len(mockDishes),
			"total_dishes_estimate": len(mockDishes),
		})
	case ModeDishDetails:
		return marshalMock(mockDetails(firstDish(req.Dishes)))
	case ModeBatchDetails:
		details := make([]DishDetails, 0, len(req.Dishes))
		for _, d := range req.Dishes {
			details = append(details, mockDetails(d))
		}
		return marshalMock(map[string]any{"details": details})
	}
	return marshalMock(map[string]any{
		"original_text":   MockMenuText,
		"translated_text": mockTranslate(MockMenuText),
		"menu_items":      mockDishes,
	})
}

func mockDetails(d DishRef) DishDetails {
	for _, item := range mockDishes {
		if item.Chinese == d.ChineseName {
			return DishDetails{
				CulturalDetails:     fmt.Sprintf("%s is a common dish in %s home cooking.", item.English, item.RegionalOrigin),
				Ingredients:         item.Ingredients,
				SpicinessLevel:      item.SpicinessLevel.Description(),
				DietaryInfo:         nonNilStrings(item.DietaryInfo),
				RegionalOrigin:      item.RegionalOrigin,
				RecommendedPairings: []string{"rice", "tea"},
				NutritionalInfo:     item.HealthCategory,
			}
		}
	}
	name := d.EnglishName
	if name == "" {
		name = d.ChineseName
	}
	return DishDetails{
		CulturalDetails:     name + " is a traditional dish.",
		Ingredients:         []string{},
		SpicinessLevel:      "none",
		DietaryInfo:         []string{},
		RecommendedPairings: []string{"rice"},
	}
}

func firstDish(ds []DishRef) DishRef {
	if len(ds) == 0 {
		return DishRef{}
	}
	return ds[0]
}

var mockTerms = strings.NewReplacer(
	"凉菜", "Cold Dishes",
	"汤类", "Soups",
	"单品菜", "Single Dishes",
	"花生豆腐汤", "Peanut Tofu Soup",
	"鱼香肉丝套餐", "Fish-Flavored Shredded Pork Set",
	"宫保鸡丁套餐", "Kung Pao Chicken Set",
	"花蛤豆腐汤", "Clam Tofu Soup",
	"元", " Yuan",
)

func mockTranslate(text string) string { return mockTerms.Replace(text) }

func marshalMock(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nonNil(items []MenuItem) []MenuItem {
	if items == nil {
		return []MenuItem{}
	}
	return items
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// MockTranslator tags text instead of translating it.
type MockTranslator struct{}

// Name returns the client identifier.
func (MockTranslator) Name() string { return MockName }

// Translate returns "[<Language> Translation] <first 100 runes>...".
func (MockTranslator) Translate(_ context.Context, text, target string) (string, error) {
	r := []rune(text)
	if len(r) > 100 {
		r = r[:100]
	}
	return fmt.Sprintf("[%s Translation] %s...", LanguageName(target), string(r)), nil
}
