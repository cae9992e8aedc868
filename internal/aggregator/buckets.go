package aggregator

import "MASentinel/internal/model"

// BucketOrder is the fixed section order of an alert.
var BucketOrder = []model.BucketKey{
	{Timeframe: model.Daily, Kind: model.Near},
	{Timeframe: model.Daily, Kind: model.BrokenBelow},
	{Timeframe: model.Weekly, Kind: model.Near},
	{Timeframe: model.Weekly, Kind: model.BrokenBelow},
}

// Buckets splits a result into the four (timeframe, classification)
// buckets, one entry per matching touch, in record order.
func Buckets(res *model.ScanResult) []model.AlertBucket {
	buckets := make([]model.AlertBucket, len(BucketOrder))
	index := make(map[model.BucketKey]int, len(BucketOrder))
	for i, key := range BucketOrder {
		buckets[i].Key = key
		index[key] = i
	}
	if res == nil {
		return buckets
	}
	for _, rec := range res.Records {
		for _, tf := range model.DefaultTimeframes {
			for _, touch := range rec.Touches(tf) {
				i, ok := index[model.BucketKey{Timeframe: tf, Kind: touch.Kind}]
				if !ok {
					continue
				}
				buckets[i].Entries = append(buckets[i].Entries, model.BucketEntry{
					Symbol: rec.Symbol,
					Name:   rec.Name,
					Touch:  touch,
				})
			}
		}
	}
	return buckets
}
