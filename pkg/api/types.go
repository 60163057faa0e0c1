package api

// ProjectorResponse describes the null-space projector of the running module
type ProjectorResponse struct {
	NumWheels     int         `json:"num_wheels"`
	OmegaGain     float64     `json:"omega_gain"`
	Projector     [][]float64 `json:"projector"`
	PseudoInverse [][]float64 `json:"pseudo_inverse"`
	Residual      float64     `json:"residual"`
	GramCondition float64     `json:"gram_condition"`
}

// OutputMessage is one corrected wheel command streamed over the output websocket
type OutputMessage struct {
	Channel    string    `json:"channel"`
	WriteClock uint64    `json:"write_clock_ns"`
	WriteCount uint64    `json:"write_count"`
	Values     []float64 `json:"values"`
}
