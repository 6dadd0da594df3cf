package benchmarks

import "github.com/sarchlab/murvsim/insts"

// dataBase is the start of the data segment, loaded with LUI.
const dataBase = 0x10000000

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a single pipeline effect.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		countedLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick validation:
// a loop, a call sequence and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countedLoop(),
		functionCalls(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - no instruction depends on the four before it
func arithmeticSequential() Benchmark {
	program := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		rd := uint8(1 + i%5)
		program = append(program, insts.ADDI(rd, rd, 1))
	}

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 ADDIs over 5 registers - no hazards in either mode",
		Program:     program,
		Expected:    map[uint8]uint32{1: 4, 2: 4, 3: 4, 4: 4, 5: 4},
	}
}

// 2. Dependency Chain - every instruction reads the previous result
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIs (x1 = x1 + 1) - measures forwarding benefit",
		Program:     buildDependencyChain(20),
		Expected:    map[uint8]uint32{1: 20},
	}
}

func buildDependencyChain(n int) []uint32 {
	program := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		program = append(program, insts.ADDI(1, 1, 1))
	}
	return program
}

// 3. Load Use - every load is consumed by the next instruction
func loadUse() Benchmark {
	program := []uint32{
		insts.LUI(20, dataBase),
		insts.ADDI(1, 0, 7),
		insts.SW(1, 20, 0),
	}
	for i := 0; i < 5; i++ {
		program = append(program,
			insts.LW(2, 20, 0),
			insts.ADD(3, 3, 2),
		)
	}

	return Benchmark{
		Name:        "load_use",
		Description: "5 LW/ADD pairs - one stall per pair with forwarding",
		Program:     program,
		Expected:    map[uint8]uint32{2: 7, 3: 35},
	}
}

// 4. Memory Sequential - store/load pairs to consecutive words
func memorySequential() Benchmark {
	program := []uint32{
		insts.LUI(20, dataBase),
		insts.ADDI(1, 0, 42),
	}
	for i := int32(0); i < 10; i++ {
		program = append(program,
			insts.SW(1, 20, i*4),
			insts.LW(1, 20, i*4),
		)
	}

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 SW/LW pairs to sequential addresses - the loaded value feeds the next store",
		Program:     program,
		Expected:    map[uint8]uint32{1: 42},
	}
}

// 5. Function Calls - JAL/JALR pairs
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls of a two-instruction function - measures call overhead",
		Program: []uint32{
			insts.JAL(0, 12), // skip add_one

			// add_one
			insts.ADDI(10, 10, 1),
			insts.JALR(0, 1, 0),

			insts.JAL(1, -8),
			insts.JAL(1, -12),
			insts.JAL(1, -16),
			insts.JAL(1, -20),
			insts.JAL(1, -24),
			insts.ADDI(11, 10, 0),
		},
		Expected: map[uint8]uint32{10: 5, 11: 5},
	}
}

// 6. Branch Taken - forward branches over one instruction
func branchTaken() Benchmark {
	program := make([]uint32, 0, 16)
	for i := 0; i < 5; i++ {
		program = append(program,
			insts.BEQ(0, 0, 8),
			insts.ADDI(5, 5, 99), // skipped
			insts.ADDI(10, 10, 1),
		)
	}
	program = append(program, insts.ADDI(11, 10, 0))

	return Benchmark{
		Name:        "branch_taken",
		Description: "5 taken BEQs skipping one instruction each - measures branch bubbles",
		Program:     program,
		Expected:    map[uint8]uint32{5: 0, 10: 5, 11: 5},
	}
}

// 7. Counted Loop - sum 10..1
func countedLoop() Benchmark {
	return Benchmark{
		Name:        "counted_loop",
		Description: "10-iteration BNE loop accumulating a sum",
		Program: []uint32{
			insts.ADDI(1, 0, 10),
			insts.ADDI(2, 0, 0),
			insts.ADD(2, 2, 1),
			insts.ADDI(1, 1, -1),
			insts.BNE(1, 0, -8),
			insts.ADDI(3, 2, 0),
		},
		Expected: map[uint8]uint32{1: 0, 2: 55, 3: 55},
	}
}
