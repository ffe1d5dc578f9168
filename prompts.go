package menulens

// DefaultInstructions is used when no instruction file is configured.
const DefaultInstructions = `From the attached image of the menu, please translate the items and provide:
Pinyin Name, English Translation, Core Ingredients, Pork Alert, Beef Alert, Spice Level, Cultural Element, Health Category`

// FullSchemaExample is embedded verbatim in full-mode prompts.
const FullSchemaExample = `{
  "original_text": "all source-language text from the menu, separated by newlines",
  "translated_text": "full translation, preserving structure",
  "menu_items": [
    {
      "chinese": "dish name in the original script",
      "pinyin": "romanized pronunciation with tone marks",
      "english": "English translation",
      "price": "price if visible",
      "ingredients": ["main ingredient 1", "ingredient 2", "ingredient 3"],
      "pork_alert": "Yes - Type" or "No",
      "beef_alert": "Yes - Type" or "No",
      "spiciness_level": "X/5 - Description",
      "cultural_details": "Brief engaging fact",
      "health_category": "Healthy/Unhealthy - Oil Level",
      "regional_origin": "Province or region",
      "dietary_info": ["vegetarian", "halal", etc.]
    }
  ]
}`

// WindowedSchemaExample adds the pagination fields.
const WindowedSchemaExample = `{
  "menu_items": [
    {
      "chinese": "dish name in the original script",
      "pinyin": "romanized pronunciation with tone marks",
      "english": "English translation",
      "price": "price if visible",
      "ingredients": ["main ingredient 1", "ingredient 2", "ingredient 3"],
      "pork_alert": "Yes - Type" or "No",
      "beef_alert": "Yes - Type" or "No",
      "spiciness_level": "X/5 - Description",
      "cultural_details": "Brief engaging fact",
      "health_category": "Healthy/Unhealthy - Oil Level",
      "regional_origin": "Province or region",
      "dietary_info": ["vegetarian", "halal", etc.]
    }
  ],
  "has_more": true or false,
  "total_dishes_estimate": 12
}`

// DetailsSchemaExample describes one enrichment object.
const DetailsSchemaExample = `{
  "cultural_details": "brief cultural/historical background of this dish (2-3 sentences)",
  "ingredients": ["ingredient1", "ingredient2", "ingredient3"],
  "spiciness_level": "none/mild/medium/hot/very hot",
  "dietary_info": ["vegetarian", "vegan", "halal", "gluten-free", "dairy-free", "contains nuts", etc.],
  "regional_origin": "region/province where this dish originated",
  "recommended_pairings": ["rice", "noodles", "soup", "tea", etc.],
  "nutritional_info": "brief overview (e.g., high protein, low fat, etc.)"
}`

var defaultTemplates = map[string]string{
	string(ModeFull): `{{ instructions }}

The menu is written in {{ source_language }}. Translate it to {{ target_language }}.

Return ONLY valid JSON (no markdown, no code blocks) with this structure:
{{ schema }}

Provide ALL requested information for EVERY dish in ONE response. Return valid JSON only.`,

	string(ModeWindowed): `{{ instructions }}

The menu is written in {{ source_language }}. Translate it to {{ target_language }}.

Number the dishes on the menu from 1 in reading order, skipping section headers and labels.
Analyze ONLY dishes {{ start }} through {{ end }}. Ignore every other dish.
{% if has_total %}The menu has {{ total_hint }} dishes in total.
{% endif %}Do NOT invent dishes that are not visible on the menu.
If fewer than {{ end }} dishes exist, return only the dishes that exist in this range (possibly none) and set "has_more" to false.
Set "has_more" to true only if the menu has dishes after dish {{ end }}.
Set "total_dishes_estimate" to your count of all dishes on the menu.

Return ONLY valid JSON (no markdown, no code blocks) with this structure:
{{ schema }}`,

	string(ModeCountOnly): `Count the dishes on this {{ source_language }} menu image.
Count only orderable dishes. Do NOT count section headers, category labels, promotional text, or serving-size notes.

Return ONLY valid JSON (no markdown): {"total_dishes": <integer>}`,

	string(ModeOCR): `Extract all text from this {{ source_language }} menu image, preserving line structure. Return the text only.`,

	string(ModeDishDetails): `Provide comprehensive details about this {{ source_language }} dish:
Original name: {{ chinese_name }}
English name: {{ english_name }}
{% if pinyin %}Pinyin: {{ pinyin }}
{% endif %}
Return ONLY a JSON object with this exact structure (no markdown formatting):
{{ schema }}

Be accurate and concise. Return valid JSON only (no markdown code blocks).`,

	string(ModeBatchDetails): `Provide comprehensive details for these {{ dish_count }} {{ source_language }} dishes. Be concise.

Dishes:
{{ dish_list }}

Return ONLY a JSON object {"details": [...]} where the array holds {{ dish_count }} objects in the same order, each with this exact structure (no markdown):
{{ schema }}

Return valid JSON only. No markdown.`,
}
