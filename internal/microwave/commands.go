package microwave

// SCPI command set of the SMB100A / SMBV100A
const (
	cmdIdentify       = "*IDN?"
	cmdClearStatus    = "*CLS"
	cmdReset          = "*RST"
	cmdWait           = "*WAI"
	cmdOperationQuery = "*OPC?"

	cmdFreqModeQuery = ":FREQ:MODE?"
	cmdFreqModeCW    = ":FREQ:MODE CW"
	cmdFreqModeSweep = ":FREQ:MODE SWEEP"
	cmdFreqFmt       = ":FREQ %f"
	cmdFreqQuery     = ":FREQ?"
	cmdPowerFmt      = ":POW %f"
	cmdPowerQuery    = ":POW?"

	cmdOutputOn    = ":OUTP:STAT ON"
	cmdOutputOff   = "OUTP:STAT OFF"
	cmdOutputQuery = ":OUTP:STAT?"
	cmdSlopeFmt    = ":TRIG1:SLOP %s"
	cmdSlopeQuery  = ":TRIG1:SLOP?"
	cmdAbortSweep  = ":ABOR:SWE"

	cmdSweepModeStep         = ":SWE:MODE STEP"
	cmdSweepSpacingLinear    = ":SWE:SPAC LIN"
	cmdSweepStartFmt         = ":FREQ:START %f"
	cmdSweepStopFmt          = ":FREQ:STOP %f"
	cmdSweepStepFmt          = ":SWE:STEP:LIN %f"
	cmdTriggerSourceExternal = "TRIG:FSW:SOUR EXT"
)
