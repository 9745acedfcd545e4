package cache

// Key names under the store's prefix. The snapshot key holds the gzipped
// JSON snapshot; the vehicles key is a hash of vehicle id to gzipped JSON
// for point lookups.
const (
	KeyTrainPositions = "train-positions"
	KeyVehicleHash    = "train-positions:vehicles"
)
