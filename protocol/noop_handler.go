package protocol

// NoOpHandler implements MessageHandler with empty methods.
type NoOpHandler struct{}

func (NoOpHandler) HandlePipeDecisionFinalized(*Envelope, *PipeDecisionFinalized) {}
func (NoOpHandler) HandleHeatDelayReported(*Envelope, *HeatDelayReported)         {}
func (NoOpHandler) HandleCriticalAlert(*Envelope, *CriticalAlert)                 {}
