// Package menulens extracts structured dish data from photos of restaurant
// menus by driving vision and language model providers.
//
// A menu is read either in one shot or in fixed-size windows. Windowed
// extraction asks the provider for dishes [start,end] only, which keeps each
// response small enough to finish inside a short request deadline:
//
//	o, _ := menulens.New(menulens.NewMockClient(), nil, nil)
//	img, _ := menulens.DecodeImage(base64Photo)
//
//	res, err := o.ExtractBatch(ctx, menulens.BatchRequest{Image: img, BatchIndex: 1})
//	// res.Items holds dishes 1 and 2, res.HasMore says whether to ask for batch 2.
//
// # Providers
//
// Every backend implements Recognizer: GeminiClient (Google GenAI SDK),
// OpenAIClient (Chat Completions with image parts), VisionClient (Cloud Vision
// TEXT_DETECTION) and MockClient (canned sample menu). Selector builds one by
// name; for "vision" it falls back from a service account to an API key and
// finally to the mock, so selection never fails.
//
// # Response contract
//
// Provider text goes through Parse, which strips a markdown fence, decodes
// the JSON, checks it against an embedded JSON Schema and fills defaults for
// missing fields. RepairBatch then enforces the window rules: at most one
// window of items, and an empty terminal batch when the provider reports
// fewer dishes than the window start.
//
// # Sessions
//
// Session walks batches in order, merging items and stopping as soon as a
// batch reports has_more=false. ExtractAll runs the count probe concurrently
// with the first batch and then drains the session.
//
// # Caching
//
// Single-shot OCR and full extraction results are cached in a bounded LRU
// keyed by the image fingerprint. Concurrent misses for the same image share
// one provider call.
package menulens
