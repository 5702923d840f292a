package insts

// amoOp maps an AMO instruction's funct5 (the top 5 bits of funct7,
// i.e. funct7 with the aq/rl bits shifted off) to its Op. Only the
// word-width LR/SC/AMOSWAP/AMOADD are recognized; any other funct5
// decodes to OpUnknown, which cpu raises as IllegalOperation.
func amoOp(funct5 uint8) Op {
	switch funct5 {
	case 0b00010:
		return OpLRW
	case 0b00011:
		return OpSCW
	case 0b00001:
		return OpAMOSWAPW
	case 0b00000:
		return OpAMOADDW
	default:
		return OpUnknown
	}
}
