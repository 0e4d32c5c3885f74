package state

func CanRun(s AlfrescoState) bool {
	return s == NotActive || s == Error || s == Stopping
}

func CanStop(s AlfrescoState) bool {
	return s == Running || s == Starting
}

func IsRunning(s AlfrescoState) bool {
	return s == Running
}

func IsLoading(s AlfrescoState) bool {
	return s == Starting
}

func IsStopping(s AlfrescoState) bool {
	return s == Stopping
}

func IsInstalling(s AlfrescoState) bool {
	return s == DownloadingImages
}

func IsError(s AlfrescoState) bool {
	return s == Error
}
