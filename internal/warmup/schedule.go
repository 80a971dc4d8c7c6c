package warmup

// daySchedule is the fixed 70-day quota vector. Strictly monotonically
// increasing; day[0]=5, day[69]=20000, the end-of-week values at
// (1-based) days 7,14,...,70 are 20, 50, 110, 250, 550, 1200, 2600,
// 5500, 10000, 20000, and days 1-8 are 5,7,10,12,15,18,20,25. Interior
// days beyond day 8 are geometrically interpolated between week
// endpoints.
var daySchedule = [70]int{
	5, 7, 10, 12, 15, 18, 20,
	25, 28, 31, 35, 40, 45, 50,
	56, 63, 70, 78, 88, 98, 110,
	124, 139, 156, 176, 198, 222, 250,
	280, 313, 351, 392, 439, 491, 550,
	615, 687, 768, 859, 960, 1073, 1200,
	1340, 1497, 1671, 1867, 2085, 2328, 2600,
	2894, 3221, 3584, 3989, 4440, 4942, 5500,
	5990, 6524, 7106, 7740, 8430, 9181, 10000,
	11041, 12190, 13459, 14860, 16407, 18114, 20000,
}

// TargetDailyQuota is the schedule's final day-70 quota.
const TargetDailyQuota = 20000

// GetQuotaForDay returns the planned daily send volume for day n
// (1-based), clamping n<=0 to day 1 and n>70 to day 70.
func GetQuotaForDay(n int) int {
	if n <= 0 {
		n = 1
	}
	if n > 70 {
		n = 70
	}
	return daySchedule[n-1]
}

// DailyToHourly converts a daily quota to an hourly sending rate,
// assuming 16 active sending hours per day and a 20% safety margin.
func DailyToHourly(daily int) int {
	hourly := int(float64(daily) / 16 * 0.8)
	if hourly < 1 {
		hourly = 1
	}
	return hourly
}
