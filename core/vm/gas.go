package vm

// Static gas tiers shared by most opcodes.
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20
)

// Resource limits.
const (
	// CallDepthLimit caps the nesting of call/create frames.
	CallDepthLimit = 1024
	// MaxCodeSize is the EIP-170 cap on deployed contract code.
	MaxCodeSize = 24576
	// MaxInitCodeSize is the EIP-3860 cap on creation init code.
	MaxInitCodeSize = 2 * MaxCodeSize
)

// Gas schedule parameters. Names follow the Yellow Paper / EIP conventions.
const (
	GasMemoryWord    uint64 = 3   // linear coefficient of the memory cost
	QuadCoeffDiv     uint64 = 512 // divisor of the quadratic memory term
	GasCopyWord      uint64 = 3   // per-word surcharge of *COPY opcodes
	GasKeccak256     uint64 = 30
	GasKeccak256Word uint64 = 6
	GasLog           uint64 = 375
	GasLogTopic      uint64 = 375
	GasLogByte       uint64 = 8
	GasExpByte       uint64 = 10 // 50 from EIP-160 (Spurious Dragon)
	GasExpByteEIP160 uint64 = 50

	GasCreate       uint64 = 32000
	CreateDataGas   uint64 = 200 // per byte of deployed code
	InitCodeWordGas uint64 = 2   // EIP-3860, per word of init code

	GasCall              uint64 = 40  // pre EIP-150
	GasCallEIP150        uint64 = 700 // Tangerine Whistle
	CallValueTransferGas uint64 = 9000
	CallNewAccountGas    uint64 = 25000
	CallStipend          uint64 = 2300
	// CallGasFraction: a caller always retains 1/64 of its remaining gas
	// when forwarding to a child (EIP-150).
	CallGasFraction uint64 = 64

	GasBalance         uint64 = 20  // Frontier
	GasBalanceEIP150   uint64 = 400 // Tangerine Whistle
	GasBalanceEIP1884  uint64 = 700 // Istanbul
	GasExtcodeSize     uint64 = 20
	GasExtcodeEIP150   uint64 = 700
	GasExtcodeCopy     uint64 = 20
	GasExtcodeCopy150  uint64 = 700
	GasExtcodeHash     uint64 = 400
	GasExtcodeHash1884 uint64 = 700
	GasSload           uint64 = 50  // Frontier
	GasSloadEIP150     uint64 = 200 // Tangerine Whistle
	GasSloadEIP1884    uint64 = 800 // Istanbul

	GasSelfdestruct         uint64 = 5000 // EIP-150 (0 before)
	SelfdestructRefundGas   uint64 = 24000
	CreateBySelfdestructGas uint64 = 25000

	GasJumpdest   uint64 = 1
	GasTLoadStore uint64 = 100 // EIP-1153
	GasBlobHash   uint64 = 3   // EIP-4844
)

// SSTORE gas schedule (EIP-2200, adjusted by EIP-2929 and EIP-3529).
const (
	SstoreSetGas               uint64 = 20000
	SstoreResetGas             uint64 = 5000 // pre-Berlin; Berlin charges 5000-2100
	SstoreClearsScheduleRefund uint64 = 4800 // EIP-3529
	SstoreSentryGas            uint64 = 2300 // EIP-2200 minimum gas to attempt SSTORE
	// Legacy (pre EIP-2200) schedule.
	SstoreLegacySetGas      uint64 = 20000
	SstoreLegacyResetGas    uint64 = 5000
	SstoreLegacyClearRefund uint64 = 15000
)

// EIP-2929 warm/cold access costs (Berlin).
const (
	ColdAccountAccessCost uint64 = 2600
	ColdSloadCost         uint64 = 2100
	WarmStorageReadCost   uint64 = 100
)

// The refund applied at transaction completion is capped at gasUsed divided
// by the quotient of the active fork. EIP-3529 tightened it from 2 to 5.
const (
	RefundQuotient        uint64 = 2
	RefundQuotientEIP3529 uint64 = 5
)

// Precompiled contract gas parameters.
const (
	EcrecoverGas        uint64 = 3000
	Sha256BaseGas       uint64 = 60
	Sha256PerWordGas    uint64 = 12
	Ripemd160BaseGas    uint64 = 600
	Ripemd160PerWordGas uint64 = 120
	IdentityBaseGas     uint64 = 15
	IdentityPerWordGas  uint64 = 3
	PointEvaluationGas  uint64 = 50000

	Bls12381G1AddGas          uint64 = 375
	Bls12381G2AddGas          uint64 = 600
	Bls12381PairingBaseGas    uint64 = 37700
	Bls12381PairingPerPairGas uint64 = 32600
	Bls12381MapG1Gas          uint64 = 5500
	Bls12381MapG2Gas          uint64 = 23800
)
