package menulens

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_Modes(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	text, err := m.Recognize(ctx, Request{Mode: ModeOCR})
	require.NoError(t, err)
	assert.Equal(t, MockMenuText, text)

	raw, err := m.Recognize(ctx, Request{Mode: ModeCountOnly})
	require.NoError(t, err)
	p, err := Parse(raw, ModeCountOnly)
	require.NoError(t, err)
	assert.Equal(t, 11, p.TotalDishes)

	raw, err = m.Recognize(ctx, Request{Mode: ModeFull})
	require.NoError(t, err)
	p, err = Parse(raw, ModeFull)
	require.NoError(t, err)
	assert.Len(t, p.MenuItems, 11)
	assert.Equal(t, MockMenuText, p.OriginalText)
	assert.Contains(t, p.TranslatedText, "Peanut Tofu Soup")

	assert.Equal(t, 3, m.Calls())
}

func TestMockClient_Windowed(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	raw, err := m.Recognize(ctx, Request{Mode: ModeWindowed, Window: WindowFor(1, 2)})
	require.NoError(t, err)
	p, err := Parse(raw, ModeWindowed)
	require.NoError(t, err)
	require.Len(t, p.MenuItems, 2)
	assert.Equal(t, "花生豆腐汤", p.MenuItems[0].Chinese)
	assert.True(t, p.HasMore)
	assert.Equal(t, 11, p.TotalDishesEstimate)

	raw, err = m.Recognize(ctx, Request{Mode: ModeWindowed, Window: WindowFor(6, 2)})
	require.NoError(t, err)
	p, err = Parse(raw, ModeWindowed)
	require.NoError(t, err)
	require.Len(t, p.MenuItems, 1)
	assert.Equal(t, "剁椒鱼头", p.MenuItems[0].Chinese)
	assert.False(t, p.HasMore)

	raw, err = m.Recognize(ctx, Request{Mode: ModeWindowed, Window: WindowFor(9, 2)})
	require.NoError(t, err)
	p, err = Parse(raw, ModeWindowed)
	require.NoError(t, err)
	assert.Empty(t, p.MenuItems)
	assert.False(t, p.HasMore)
}

func TestMockClient_Details(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	raw, err := m.Recognize(ctx, Request{Mode: ModeDishDetails, Dishes: []DishRef{{ChineseName: "剁椒鱼头"}}})
	require.NoError(t, err)
	p, err := Parse(raw, ModeDishDetails)
	require.NoError(t, err)
	require.Len(t, p.Details, 1)
	assert.Equal(t, "Hunan", p.Details[0].RegionalOrigin)
	assert.Equal(t, "Hot", p.Details[0].SpicinessLevel)

	raw, err = m.Recognize(ctx, Request{Mode: ModeBatchDetails, Dishes: []DishRef{
		{ChineseName: "鱼香肉丝"}, {ChineseName: "麻婆豆腐", EnglishName: "Mapo Tofu"},
	}})
	require.NoError(t, err)
	p, err = Parse(raw, ModeBatchDetails)
	require.NoError(t, err)
	require.Len(t, p.Details, 2)
	assert.Equal(t, "Sichuan", p.Details[0].RegionalOrigin)
	assert.Equal(t, "Mapo Tofu is a traditional dish.", p.Details[1].CulturalDetails)
}

func TestMockClient_Overrides(t *testing.T) {
	boom := errors.New("boom")
	m := &MockClient{Err: boom}
	_, err := m.Recognize(context.Background(), Request{Mode: ModeOCR})
	assert.ErrorIs(t, err, boom)

	m = &MockClient{Responses: map[Mode]string{ModeOCR: "custom"}}
	text, err := m.Recognize(context.Background(), Request{Mode: ModeOCR})
	require.NoError(t, err)
	assert.Equal(t, "custom", text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMockClient().Recognize(ctx, Request{Mode: ModeOCR})
	assert.ErrorIs(t, err, ErrTransport)
}
