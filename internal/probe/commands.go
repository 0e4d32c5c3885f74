package probe

import "github.com/alfresco/alfresco-orchestrator/internal/domain"

func curlStatus(extra ...string) []string {
	cmd := []string{"curl", "-s", "-o", "/dev/null", "--max-time", "1", "-w", "%{http_code}"}
	return append(cmd, extra...)
}

var commands = map[domain.Kind][]string{
	domain.KindRepository: curlStatus("http://localhost:8080/alfresco/s/api/server"),
	domain.KindSearch:     curlStatus("-L", "--header", "X-Alfresco-Search-Secret:secret", "http://localhost:8983/solr"),
	domain.KindBroker:     curlStatus("-u", "admin:admin", "-L", "http://localhost:8161"),
	domain.KindTransform:  curlStatus("http://localhost:8090"),
	domain.KindDatabase:   {"psql", "-U", "alfresco", "-c", "select 1 where false"},
}

// Command returns the health check command for kind.
func Command(kind domain.Kind) ([]string, bool) {
	cmd, ok := commands[kind]
	if !ok {
		return nil, false
	}
	return append([]string(nil), cmd...), true
}
