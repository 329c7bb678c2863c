// Package sysinfo builds the coarse machine descriptors sent with
// sessions/start. Raw values never leave this package.
package sysinfo

import (
	"math"
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
)

// Descriptor 는 bucket 된 값만 담는다. 빈 문자열은 payload 에서 생략된다.
type Descriptor struct {
	OS        string
	CPUFamily string
	Cores     string
	Memory    string
}

// Source 는 Descriptor 를 만드는 함수. 테스트에서 고정값으로 바꿔 끼운다.
type Source func() Descriptor

// Collect 는 현재 머신의 Descriptor.
func Collect() Descriptor {
	cores := cpuid.CPU.LogicalCores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	return Descriptor{
		OS:        runtime.GOOS,
		CPUFamily: CoarsenCPUName(cpuid.CPU.BrandName, cpuid.CPU.VendorString),
		Cores:     BucketCores(cores),
		Memory:    BucketMemory(memory.TotalMemory()),
	}
}

// BucketCores
//
//	1 | 2 | 3-4 | 5-8 | 9-16 | 17-32 | 33+
//
// 0 이하 (알 수 없음) 는 "".
func BucketCores(n int) string {
	switch {
	case n <= 0:
		return ""
	case n == 1:
		return "1"
	case n == 2:
		return "2"
	case n <= 4:
		return "3-4"
	case n <= 8:
		return "5-8"
	case n <= 16:
		return "9-16"
	case n <= 32:
		return "17-32"
	}
	return "33+"
}

const gib = 1 << 30

// BucketMemory
//
// 바이트 → GiB 반올림 후
//
//	<4 | 4-8 | 8-16 | 16-32 | 32-64 | 64+
//
// 경계값은 위 구간에 포함된다 (8 GiB → "8-16"). 0 은 "".
func BucketMemory(totalBytes uint64) string {
	if totalBytes == 0 {
		return ""
	}
	g := int(math.Round(float64(totalBytes) / gib))
	switch {
	case g < 4:
		return "<4"
	case g < 8:
		return "4-8"
	case g < 16:
		return "8-16"
	case g < 32:
		return "16-32"
	case g < 64:
		return "32-64"
	}
	return "64+"
}

var cpuFamilies = []struct {
	re     *regexp.Regexp
	format func(m []string) string
}{
	{regexp.MustCompile(`(?i)\bcore(?:\(tm\))?\s+(i[3579])\b`), func(m []string) string { return "Intel Core " + strings.ToLower(m[1]) }},
	{regexp.MustCompile(`(?i)\bcore(?:\(tm\))?\s+ultra\s+([579])\b`), func(m []string) string { return "Intel Core Ultra " + m[1] }},
	{regexp.MustCompile(`(?i)\bxeon\b`), func([]string) string { return "Intel Xeon" }},
	{regexp.MustCompile(`(?i)\bceleron\b`), func([]string) string { return "Intel Celeron" }},
	{regexp.MustCompile(`(?i)\bpentium\b`), func([]string) string { return "Intel Pentium" }},
	{regexp.MustCompile(`(?i)\bryzen\s+(?:threadripper\b)`), func([]string) string { return "AMD Ryzen Threadripper" }},
	{regexp.MustCompile(`(?i)\bryzen\s+([3579])\b`), func(m []string) string { return "AMD Ryzen " + m[1] }},
	{regexp.MustCompile(`(?i)\bepyc\b`), func([]string) string { return "AMD EPYC" }},
	{regexp.MustCompile(`(?i)\bapple\s+(m[1-9])\b`), func(m []string) string { return "Apple " + strings.ToUpper(m[1]) }},
}

// CoarsenCPUName
//
// brand 문자열에서 모델 번호 / 클럭 / 세대 정보를 버리고 제품군만 남긴다.
//
//	"Intel(R) Core(TM) i7-10750H CPU @ 2.60GHz" → "Intel Core i7"
//	"AMD Ryzen 9 5900X 12-Core Processor"       → "AMD Ryzen 9"
//	"Apple M2 Pro"                              → "Apple M2"
//
// 알려진 제품군이 아니면 vendor 만, vendor 도 없으면 "".
func CoarsenCPUName(brand, vendor string) string {
	brand = strings.TrimSpace(brand)
	for _, f := range cpuFamilies {
		if m := f.re.FindStringSubmatch(brand); m != nil {
			return f.format(m)
		}
	}
	return vendorName(vendor, brand)
}

func vendorName(vendor, brand string) string {
	v := strings.ToLower(strings.TrimSpace(vendor))
	b := strings.ToLower(brand)
	switch {
	case strings.Contains(v, "intel") || strings.HasPrefix(b, "intel"):
		return "Intel"
	case strings.Contains(v, "amd") || strings.HasPrefix(b, "amd"):
		return "AMD"
	case strings.Contains(v, "apple") || strings.HasPrefix(b, "apple"):
		return "Apple"
	case v != "":
		return strings.TrimSpace(vendor)
	}
	return ""
}
