package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

const (
	DefaultNetwork           = "alfresco"
	DefaultConfigurationName = "alfresco-7.3"
)

var ErrUnknownConfiguration = errors.New("unknown configuration")

// Configurations holds the built-in service sets by name.
var Configurations = map[string][]domain.ServiceConfiguration{
	"alfresco-7.3": alfresco73(),
	"alfresco-7.2": alfresco72(),
}

// ConfigurationNames returns the names of the built-in service sets, sorted.
func ConfigurationNames() []string {
	names := make([]string, 0, len(Configurations))
	for name := range Configurations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Services returns a copy of the named service set.
func Services(name string) ([]domain.ServiceConfiguration, error) {
	services, ok := Configurations[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownConfiguration, name)
	}
	out := make([]domain.ServiceConfiguration, len(services))
	for i, s := range services {
		s.Run.Options = append([]string(nil), s.Run.Options...)
		out[i] = s
	}
	if err := domain.Validate(out); err != nil {
		return nil, fmt.Errorf("configuration %s: %w", name, err)
	}
	return out, nil
}

type versions struct {
	postgres, activemq, transform, search, repository, contentApp, proxy string
}

func alfresco73() []domain.ServiceConfiguration {
	return alfresco(versions{
		postgres:   "postgres:14.4",
		activemq:   "alfresco/alfresco-activemq:5.17.1-jre11-rockylinux8",
		transform:  "alfresco/alfresco-transform-core-aio:3.0.0",
		search:     "alfresco/alfresco-search-services:2.0.5",
		repository: "alfresco/alfresco-content-repository-community:7.3.0",
		contentApp: "alfresco/alfresco-content-app:3.1.0",
		proxy:      "alfresco/alfresco-acs-nginx:3.4.2",
	})
}

func alfresco72() []domain.ServiceConfiguration {
	return alfresco(versions{
		postgres:   "postgres:13.3",
		activemq:   "alfresco/alfresco-activemq:5.16.1",
		transform:  "alfresco/alfresco-transform-core-aio:2.5.7",
		search:     "alfresco/alfresco-search-services:2.0.3",
		repository: "alfresco/alfresco-content-repository-community:7.2.0",
		contentApp: "alfresco/alfresco-content-app:2.9.0",
		proxy:      "alfresco/alfresco-acs-nginx:3.2.0",
	})
}

func alfresco(v versions) []domain.ServiceConfiguration {
	return []domain.ServiceConfiguration{
		{
			Service: "postgres",
			Image:   v.postgres,
			Network: DefaultNetwork,
			Kind:    domain.KindDatabase,
			Run: domain.RunSpec{
				Order: 0,
				Options: []string{
					"-e", "POSTGRES_PASSWORD=alfresco",
					"-e", "POSTGRES_USER=alfresco",
					"-e", "POSTGRES_DB=alfresco",
					"-p", "5432:5432",
				},
				Cmd: "postgres -c max_connections=300 -c log_min_messages=LOG",
			},
		},
		{
			Service: "activemq",
			Image:   v.activemq,
			Network: DefaultNetwork,
			Kind:    domain.KindBroker,
			Run: domain.RunSpec{
				Order: 0,
				Options: []string{
					"-p", "8161:8161",
					"-p", "5672:5672",
					"-p", "61616:61616",
					"-p", "61613:61613",
				},
			},
		},
		{
			Service: "transform-core-aio",
			Image:   v.transform,
			Network: DefaultNetwork,
			Kind:    domain.KindTransform,
			Run: domain.RunSpec{
				Order: 0,
				Options: []string{
					"-e", "JAVA_OPTS=-XX:MinRAMPercentage=50 -XX:MaxRAMPercentage=80",
					"-e", "ACTIVEMQ_URL=nio://activemq:61616",
					"-p", "8090:8090",
					"--memory", "1536m",
				},
			},
		},
		{
			Service: "solr6",
			Image:   v.search,
			Network: DefaultNetwork,
			Kind:    domain.KindSearch,
			Run: domain.RunSpec{
				Order: 1,
				Options: []string{
					"-e", "SOLR_ALFRESCO_HOST=alfresco",
					"-e", "SOLR_ALFRESCO_PORT=8080",
					"-e", "SOLR_SOLR_HOST=solr6",
					"-e", "SOLR_SOLR_PORT=8983",
					"-e", "SOLR_CREATE_ALFRESCO_DEFAULTS=alfresco,archive",
					"-e", "ALFRESCO_SECURE_COMMS=secret",
					"-e", "JAVA_TOOL_OPTIONS=-Dalfresco.secureComms.secret=secret",
					"-p", "8083:8983",
					"--memory", "2g",
				},
			},
		},
		{
			Service: "alfresco",
			Image:   v.repository,
			Network: DefaultNetwork,
			Kind:    domain.KindRepository,
			Run: domain.RunSpec{
				Order: 1,
				Options: []string{
					"-e", "JAVA_TOOL_OPTIONS=-Dencryption.keystore.type=JCEKS -Dencryption.cipherAlgorithm=DESede/CBC/PKCS5Padding -Dencryption.keyAlgorithm=DESede -Dencryption.keystore.location=/usr/local/tomcat/shared/classes/alfresco/extension/keystore/keystore -Dmetadata-keystore.password=mp6yc0UD9e -Dmetadata-keystore.aliases=metadata -Dmetadata-keystore.metadata.password=oKIWzVdEdA -Dmetadata-keystore.metadata.algorithm=DESede",
					"-e", "JAVA_OPTS=-Ddb.driver=org.postgresql.Driver -Ddb.username=alfresco -Ddb.password=alfresco -Ddb.url=jdbc:postgresql://postgres:5432/alfresco -Dsolr.host=solr6 -Dsolr.port=8983 -Dsolr.http.connection.timeout=1000 -Dsolr.secureComms=secret -Dsolr.sharedSecret=secret -Dsolr.base.url=/solr -Dindex.subsystem.name=solr6 -Dshare.host=127.0.0.1 -Dshare.port=8080 -Dalfresco.host=localhost -Dalfresco.port=8080 -Daos.baseUrlOverwrite=http://localhost:8080/alfresco/aos -Dmessaging.broker.url=failover:(nio://activemq:61616)?timeout=3000&jms.useCompression=true -Ddeployment.method=DOCKER_COMPOSE -DlocalTransform.core-aio.url=http://transform-core-aio:8090/ -XX:MinRAMPercentage=50 -XX:MaxRAMPercentage=80",
					"-p", "8081:8080",
					"--memory", "2g",
				},
			},
		},
		{
			Service: "content-app",
			Image:   v.contentApp,
			Network: DefaultNetwork,
			Run: domain.RunSpec{
				Order: 2,
				Options: []string{
					"-e", "APP_BASE_SHARE_URL=http://localhost:8080/aca/#/preview/s",
					"--memory", "256m",
				},
			},
		},
		{
			Service: "proxy",
			Image:   v.proxy,
			Network: DefaultNetwork,
			Run: domain.RunSpec{
				Order: 3,
				Options: []string{
					"-e", "DISABLE_PROMETHEUS=true",
					"-e", "DISABLE_SYNCSERVICE=true",
					"-e", "DISABLE_ADW=true",
					"-e", "DISABLE_SHARE=true",
					"-e", "DISABLE_CONTROL_CENTER=true",
					"-e", "ENABLE_CONTENT_APP=true",
					"-p", "8080:8080",
					"--memory", "128m",
				},
			},
		},
	}
}
