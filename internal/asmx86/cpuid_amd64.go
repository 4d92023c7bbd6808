//go:build amd64

package asmx86

// cpuidSerialize is implemented in cpuid_amd64.s: it executes CPUID, a
// serializing instruction on x86-64, to ensure every core observes
// in-flight code patches before JIT'd code resumes running on it (spec §4.1,
// §9 "Self-modifying code safety").
func cpuidSerialize()
