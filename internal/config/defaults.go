package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "warn"
	DefaultJSONLog           = false
	DefaultStartURL          = "https://www.hshfy.sh.cn/shfy/gweb2017/flws_list_new.jsp?ajlb=aYWpsYj3QzMrCz"
	DefaultDetailBase        = "https://www.hshfy.sh.cn/shfy/web/flws_view.jsp"
	DefaultTargetCount       = 30
	DefaultMaxTargetCount    = 100000
	DefaultOutputDir         = "output"
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultBrowserHeadless   = true
	DefaultNavigationTimeout = 30 * time.Second
	DefaultDelayScale        = 1.0
	DefaultActionRPS         = 2.0
	DefaultActionBurst       = 3
	DefaultShowProgress      = true
	DefaultEnvPrefix         = "CASECRAWL_"
)
